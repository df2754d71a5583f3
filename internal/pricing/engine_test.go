package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacks402/gateway/internal/protocol"
)

func TestFixedTierEstimateFree(t *testing.T) {
	estimate, err := FixedTierEstimate(protocol.Free(), protocol.Native)
	require.NoError(t, err)
	assert.Equal(t, int64(0), estimate.Amount.Int64())
}

func TestFixedTierEstimateRejectsNonFixedTier(t *testing.T) {
	_, err := FixedTierEstimate(protocol.Dynamic(nil), protocol.Native)
	assert.Error(t, err)
}

func TestFixedTierEstimateClampsToMinimum(t *testing.T) {
	// A tiny sticker price converts to less than the token's minimum charge,
	// so the result must be clamped rather than advertising dust.
	estimate, err := FixedTierEstimate(protocol.Standard(0.0000001), protocol.Native)
	require.NoError(t, err)
	assert.Equal(t, protocol.Minimum(protocol.Native), estimate.Amount.Int64())
}

func TestFixedTierEstimateRejectsUnsupportedToken(t *testing.T) {
	_, err := FixedTierEstimate(protocol.Standard(0.01), protocol.TokenKind("Doge"))
	assert.Error(t, err)
}

type stubCatalog struct {
	result LookupResult
}

func (c stubCatalog) Lookup(model string) LookupResult { return c.result }

func TestDynamicEstimateUsesCatalogPricingOverFallback(t *testing.T) {
	engine := NewEngine(
		stubCatalog{result: LookupResult{Valid: true, Pricing: &ModelPricing{PromptPerK: 1.0, CompletionPerK: 2.0}}},
		map[string]ModelPricing{"gpt-x": {PromptPerK: 100, CompletionPerK: 100}},
	)

	estimate, err := engine.DynamicEstimate(protocol.ChatPricingRequest{
		Model:    "gpt-x",
		Messages: []protocol.ChatMessage{{Role: "user", Content: "hello there"}},
	}, protocol.BridgedUSD)
	require.NoError(t, err)
	assert.Equal(t, "gpt-x", estimate.ModelID)
	assert.Greater(t, estimate.Amount.Int64(), int64(0))
	assert.Less(t, estimate.USDPreMargin, estimate.USDPostMargin, "margin must be applied on top of the raw cost")
}

func TestDynamicEstimateFallsBackWhenCatalogHasNoOpinion(t *testing.T) {
	engine := NewEngine(
		stubCatalog{result: LookupResult{Valid: true, Pricing: nil}},
		map[string]ModelPricing{"gpt-x": {PromptPerK: 1.0, CompletionPerK: 1.0}},
	)

	estimate, err := engine.DynamicEstimate(protocol.ChatPricingRequest{
		Model:    "gpt-x",
		Messages: []protocol.ChatMessage{{Role: "user", Content: "hi"}},
	}, protocol.Native)
	require.NoError(t, err)
	assert.Equal(t, "gpt-x", estimate.ModelID)
}

func TestDynamicEstimateUnknownModelIsInvalidRequest(t *testing.T) {
	engine := NewEngine(stubCatalog{result: LookupResult{Valid: false, Reason: "unknown model"}}, nil)

	_, err := engine.DynamicEstimate(protocol.ChatPricingRequest{Model: "nope"}, protocol.Native)
	require.Error(t, err)
	var invalid *protocol.InvalidRequestError
	assert.ErrorAs(t, err, &invalid)
}

func TestDynamicEstimateEmptyModelWithNoCatalogFailsCleanly(t *testing.T) {
	// This is exactly what internal/discovery's manifest builder hits when it
	// prices a dynamic endpoint with an empty ChatPricingRequest{}: it must
	// come back as a plain error to skip, never panic.
	engine := NewEngine(nil, nil)

	_, err := engine.DynamicEstimate(protocol.ChatPricingRequest{}, protocol.Native)
	require.Error(t, err)
	var invalid *protocol.InvalidRequestError
	assert.ErrorAs(t, err, &invalid)
}

func TestDynamicEstimateClampsOutputTokensToTwiceInput(t *testing.T) {
	engine := NewEngine(nil, map[string]ModelPricing{"m": {PromptPerK: 1, CompletionPerK: 1}})
	maxTokens := 100000
	estimate, err := engine.DynamicEstimate(protocol.ChatPricingRequest{
		Model:     "m",
		Messages:  []protocol.ChatMessage{{Role: "user", Content: "hi"}},
		MaxTokens: &maxTokens,
	}, protocol.Native)
	require.NoError(t, err)
	require.NotNil(t, estimate.EstimatedInputTokens)
	require.NotNil(t, estimate.EstimatedOutputTokens)
	assert.LessOrEqual(t, *estimate.EstimatedOutputTokens, 2**estimate.EstimatedInputTokens)
}

func TestDynamicEstimateRejectsUnsupportedToken(t *testing.T) {
	engine := NewEngine(nil, map[string]ModelPricing{"m": {PromptPerK: 1, CompletionPerK: 1}})
	_, err := engine.DynamicEstimate(protocol.ChatPricingRequest{Model: "m"}, protocol.TokenKind("Doge"))
	assert.Error(t, err)
}
