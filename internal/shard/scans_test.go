package shard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanStoreGetLatestWins(t *testing.T) {
	ctx := context.Background()
	s, err := newTestManager(t).Get(ctx, "SP_SCAN_A")
	require.NoError(t, err)

	require.NoError(t, s.ScanStore(ctx, ScanVerdict{
		ContentID: "paste-1", ContentType: ContentPaste, Safe: true, Confidence: 0.9, ScannedAt: 100,
	}))

	v, err := s.ScanGet(ctx, "paste-1")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, v.Safe)

	require.NoError(t, s.ScanStore(ctx, ScanVerdict{
		ContentID: "paste-1", ContentType: ContentPaste, Safe: false, Confidence: 0.4, ScannedAt: 200,
	}))

	v, err = s.ScanGet(ctx, "paste-1")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.False(t, v.Safe, "a rescan overwrites the prior verdict")
	assert.Equal(t, 0.4, v.Confidence)
}

func TestScanStoreClampsConfidence(t *testing.T) {
	ctx := context.Background()
	s, err := newTestManager(t).Get(ctx, "SP_SCAN_B")
	require.NoError(t, err)

	require.NoError(t, s.ScanStore(ctx, ScanVerdict{
		ContentID: "kv-1", ContentType: ContentKV, Safe: true, Confidence: 4.2, ScannedAt: 100,
	}))
	v, err := s.ScanGet(ctx, "kv-1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Confidence)

	require.NoError(t, s.ScanStore(ctx, ScanVerdict{
		ContentID: "kv-2", ContentType: ContentKV, Safe: true, Confidence: -0.5, ScannedAt: 100,
	}))
	v, err = s.ScanGet(ctx, "kv-2")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Confidence)
}

func TestScanListFiltersByTypeAndSafety(t *testing.T) {
	ctx := context.Background()
	s, err := newTestManager(t).Get(ctx, "SP_SCAN_C")
	require.NoError(t, err)

	require.NoError(t, s.ScanStore(ctx, ScanVerdict{ContentID: "p1", ContentType: ContentPaste, Safe: true, Confidence: 0.9, ScannedAt: 1}))
	require.NoError(t, s.ScanStore(ctx, ScanVerdict{ContentID: "p2", ContentType: ContentPaste, Safe: false, Confidence: 0.2, ScannedAt: 2}))
	require.NoError(t, s.ScanStore(ctx, ScanVerdict{ContentID: "m1", ContentType: ContentMemory, Safe: true, Confidence: 0.8, ScannedAt: 3}))

	pastes, err := s.ScanList(ctx, ptrContentType(ContentPaste), false, 10)
	require.NoError(t, err)
	assert.Len(t, pastes, 2)

	safeOnly, err := s.ScanList(ctx, nil, true, 10)
	require.NoError(t, err)
	assert.Len(t, safeOnly, 2)
	for _, v := range safeOnly {
		assert.True(t, v.Safe)
	}
}

func ptrContentType(c ContentType) *ContentType { return &c }
