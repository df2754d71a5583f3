package modelcache

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacks402/gateway/internal/pricing"
)

type stubProvider struct {
	calls   int32
	pricing map[string]pricing.ModelPricing
	err     error
	block   chan struct{} // if non-nil, FetchModels waits on it before returning
}

func (p *stubProvider) FetchModels(ctx context.Context) (map[string]pricing.ModelPricing, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.block != nil {
		<-p.block
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.pricing, nil
}

func TestLookupEmptyCacheReturnsValidNilPricing(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("upstream down")}
	cache := New(provider, nil)

	result := cache.Lookup("any-model")
	assert.True(t, result.Valid, "an empty/failed cache defers to the caller's fallback table, it does not authoritatively reject")
	assert.Nil(t, result.Pricing)
}

func TestLookupPopulatedCacheHitAndMiss(t *testing.T) {
	provider := &stubProvider{pricing: map[string]pricing.ModelPricing{
		"model-a": {PromptPerK: 0.001, CompletionPerK: 0.002},
	}}
	cache := New(provider, nil)

	hit := cache.Lookup("model-a")
	require.True(t, hit.Valid)
	require.NotNil(t, hit.Pricing)
	assert.Equal(t, 0.001, hit.Pricing.PromptPerK)

	miss := cache.Lookup("no-such-model")
	assert.False(t, miss.Valid, "a populated catalog authoritatively rejects an unknown model")
	assert.NotEmpty(t, miss.Reason)
}

func TestSanitizeDropsInvalidPrices(t *testing.T) {
	provider := &stubProvider{pricing: map[string]pricing.ModelPricing{
		"good":     {PromptPerK: 0.001, CompletionPerK: 0.002},
		"negative": {PromptPerK: -1, CompletionPerK: 0.002},
		"nan":      {PromptPerK: math.NaN(), CompletionPerK: 0.002},
		"inf":      {PromptPerK: math.Inf(1), CompletionPerK: 0.002},
	}}
	cache := New(provider, nil)
	cache.Lookup("good")

	snap := cache.Snapshot()
	_, hasGood := snap["good"]
	_, hasNegative := snap["negative"]
	_, hasNaN := snap["nan"]
	_, hasInf := snap["inf"]
	assert.True(t, hasGood)
	assert.False(t, hasNegative)
	assert.False(t, hasNaN)
	assert.False(t, hasInf)
}

func TestConcurrentLookupsShareOneRefresh(t *testing.T) {
	block := make(chan struct{})
	provider := &stubProvider{pricing: map[string]pricing.ModelPricing{"m": {PromptPerK: 1, CompletionPerK: 1}}, block: block}
	cache := New(provider, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Lookup("m")
		}()
	}
	close(block)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.calls), "concurrent refreshes on a cold cache must collapse into one upstream fetch")
}
