package shard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasteCreateGetDelete(t *testing.T) {
	ctx := context.Background()
	s, err := newTestManager(t).Get(ctx, "SP_PASTE_A")
	require.NoError(t, err)

	id, err := s.PasteCreate(ctx, "hello world", PasteOptions{})
	require.NoError(t, err)
	assert.Len(t, id, 8, "paste ids are the 8-char random alphabet id")

	p, err := s.PasteGet(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "hello world", p.Content)

	removed, err := s.PasteDelete(ctx, id)
	require.NoError(t, err)
	assert.True(t, removed)

	gone, err := s.PasteGet(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestPasteExpiresOnTTL(t *testing.T) {
	ctx := context.Background()
	s, err := newTestManager(t).Get(ctx, "SP_PASTE_B")
	require.NoError(t, err)

	past := -1 * time.Second
	id, err := s.PasteCreate(ctx, "ephemeral", PasteOptions{TTL: &past})
	require.NoError(t, err)

	p, err := s.PasteGet(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, p, "a paste past its TTL is invisible and swept on read")
}

func TestPasteGetMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	s, err := newTestManager(t).Get(ctx, "SP_PASTE_C")
	require.NoError(t, err)

	p, err := s.PasteGet(ctx, "nosuchid")
	require.NoError(t, err)
	assert.Nil(t, p)
}
