package shard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestKVSetGetDelete(t *testing.T) {
	ctx := context.Background()
	s, err := newTestManager(t).Get(ctx, "SP_PAYER_A")
	require.NoError(t, err)

	t.Run("set then get round-trips the value", func(t *testing.T) {
		created, err := s.KVSet(ctx, "k", "v1", SetOptions{})
		require.NoError(t, err)
		assert.True(t, created)

		entry, err := s.KVGet(ctx, "k")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "v1", entry.Value)
	})

	t.Run("overwrite preserves created_at and reports created=false", func(t *testing.T) {
		before, err := s.KVGet(ctx, "k")
		require.NoError(t, err)

		created, err := s.KVSet(ctx, "k", "v2", SetOptions{})
		require.NoError(t, err)
		assert.False(t, created)

		after, err := s.KVGet(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v2", after.Value)
		assert.Equal(t, before.CreatedAt, after.CreatedAt)
	})

	t.Run("delete removes the row", func(t *testing.T) {
		removed, err := s.KVDelete(ctx, "k")
		require.NoError(t, err)
		assert.True(t, removed)

		entry, err := s.KVGet(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})
}

func TestKVTTLExpiry(t *testing.T) {
	ctx := context.Background()
	s, err := newTestManager(t).Get(ctx, "SP_PAYER_TTL")
	require.NoError(t, err)

	past := -1 * time.Second
	_, err = s.KVSet(ctx, "expiring", "v", SetOptions{TTL: &past})
	require.NoError(t, err)

	entry, err := s.KVGet(ctx, "expiring")
	require.NoError(t, err)
	assert.Nil(t, entry, "row past its TTL must be invisible")
}

func TestShardIsolation(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	payerA, err := mgr.Get(ctx, "SP_A")
	require.NoError(t, err)
	payerB, err := mgr.Get(ctx, "SP_B")
	require.NoError(t, err)

	_, err = payerA.KVSet(ctx, "k", "A's secret", SetOptions{})
	require.NoError(t, err)

	entry, err := payerB.KVGet(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, entry, "payer B must never observe payer A's row")
}
