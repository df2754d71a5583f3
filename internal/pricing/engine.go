// Package pricing implements the pricing engine described in the gateway
// spec: fixed-tier pricing that converts a native-chain sticker price into
// the atomic units of whatever token the client chose, and dynamic pricing
// that estimates the cost of a chat completion from a model price table.
package pricing

import (
	"fmt"
	"math"
	"math/big"

	"github.com/stacks402/gateway/internal/protocol"
)

const (
	margin              = 0.20
	minimumUSD          = 0.001
	defaultOutputTokens = 256
)

// ModelPricing is the per-1k-token USD price of a chat model.
type ModelPricing struct {
	PromptPerK     float64
	CompletionPerK float64
}

// LookupResult is what a model catalog returns for one model name. Valid
// with a nil Pricing means "the cache has no opinion, caller should fall
// back to the compiled-in table"; Valid=false means the catalog is
// populated and authoritatively does not know this model.
type LookupResult struct {
	Valid   bool
	Pricing *ModelPricing
	Reason  string
}

// Catalog is the subset of the model catalog cache the pricing engine
// depends on. It is an interface so the engine can be tested without a real
// cache or upstream provider.
type Catalog interface {
	Lookup(model string) LookupResult
}

// Engine prices both fixed and dynamic tiers.
type Engine struct {
	Catalog  Catalog
	Fallback map[string]ModelPricing
}

// NewEngine builds a pricing engine backed by the given model catalog cache
// and a compiled-in fallback table used when the cache has nothing to say.
func NewEngine(catalog Catalog, fallback map[string]ModelPricing) *Engine {
	return &Engine{Catalog: catalog, Fallback: fallback}
}

// FixedTierEstimate prices a free or standard tier in the given token.
func FixedTierEstimate(tier protocol.PriceTier, token protocol.TokenKind) (protocol.PriceEstimate, error) {
	if tier.Kind == protocol.TierFree {
		return protocol.PriceEstimate{Amount: big.NewInt(0), Token: token}, nil
	}
	if tier.Kind != protocol.TierStandard {
		return protocol.PriceEstimate{}, fmt.Errorf("FixedTierEstimate called with non-fixed tier %q", tier.Kind)
	}

	nativeInfo, ok := protocol.LookupToken(protocol.Native)
	if !ok {
		return protocol.PriceEstimate{}, fmt.Errorf("native token not configured")
	}
	tokenInfo, ok := protocol.LookupToken(token)
	if !ok {
		return protocol.PriceEstimate{}, protocol.NewInvalidRequest(fmt.Sprintf("unsupported token type %q", token))
	}

	amountUSD := tier.StandardSTX * nativeInfo.USDRate
	amountTokenUnits := amountUSD / tokenInfo.USDRate
	scaled := new(big.Float).SetPrec(128).SetFloat64(amountTokenUnits)
	scale := new(big.Float).SetPrec(128).SetInt(pow10(tokenInfo.Decimals))
	scaled.Mul(scaled, scale)

	amount := roundBigFloat(scaled)
	estimate := protocol.PriceEstimate{Amount: amount, Token: token}
	estimate.ClampToMinimum()
	return estimate, nil
}

// DynamicEstimate prices a dynamic (per-token-estimate) tier for a chat
// completion request, following the algorithm in the pricing engine spec:
// resolve model pricing, estimate input/output token counts from the
// request shape, apply margin and minimum, convert to atomic token units.
func (e *Engine) DynamicEstimate(req protocol.ChatPricingRequest, token protocol.TokenKind) (protocol.PriceEstimate, error) {
	if _, ok := protocol.LookupToken(token); !ok {
		return protocol.PriceEstimate{}, protocol.NewInvalidRequest(fmt.Sprintf("unsupported token type %q", token))
	}

	modelPricing, err := e.resolveModelPricing(req.Model)
	if err != nil {
		return protocol.PriceEstimate{}, err
	}

	totalChars := 0
	for _, msg := range req.Messages {
		totalChars += len(msg.Content)
	}
	inputTokens := int(math.Ceil(float64(totalChars) / 4.0))
	if inputTokens < 1 {
		inputTokens = 1
	}

	maxOut := defaultOutputTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxOut = *req.MaxTokens
	}
	outputTokens := maxOut
	if cap := 2 * inputTokens; cap < outputTokens {
		outputTokens = cap
	}

	costUSD := float64(inputTokens)*modelPricing.PromptPerK/1000.0 + float64(outputTokens)*modelPricing.CompletionPerK/1000.0
	finalUSD := costUSD * (1 + margin)
	if finalUSD < minimumUSD {
		finalUSD = minimumUSD
	}

	amount := usdToAtomic(finalUSD, token)
	in, out := inputTokens, outputTokens
	estimate := protocol.PriceEstimate{
		Amount:                amount,
		Token:                 token,
		ModelID:               req.Model,
		EstimatedInputTokens:  &in,
		EstimatedOutputTokens: &out,
		USDPreMargin:          costUSD,
		USDPostMargin:         finalUSD,
	}
	estimate.ClampToMinimum()
	return estimate, nil
}

// resolveModelPricing consults the cache first and falls back to the
// compiled-in table when the cache has no opinion (empty or refresh
// failed). An authoritative "no such model" from a populated cache is an
// InvalidRequestError.
func (e *Engine) resolveModelPricing(model string) (ModelPricing, error) {
	if e.Catalog != nil {
		result := e.Catalog.Lookup(model)
		if !result.Valid {
			reason := result.Reason
			if reason == "" {
				reason = fmt.Sprintf("unknown model %q", model)
			}
			return ModelPricing{}, protocol.NewInvalidRequest(reason)
		}
		if result.Pricing != nil {
			return *result.Pricing, nil
		}
	}
	if p, ok := e.Fallback[model]; ok {
		return p, nil
	}
	return ModelPricing{}, protocol.NewInvalidRequest(fmt.Sprintf("unknown model %q", model))
}

func usdToAtomic(usd float64, token protocol.TokenKind) *big.Int {
	info, ok := protocol.LookupToken(token)
	if !ok {
		return big.NewInt(0)
	}
	tokenUnits := usd / info.USDRate
	scaled := new(big.Float).SetPrec(128).SetFloat64(tokenUnits)
	scale := new(big.Float).SetPrec(128).SetInt(pow10(info.Decimals))
	scaled.Mul(scaled, scale)
	return roundBigFloat(scaled)
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// roundBigFloat rounds a non-negative big.Float to the nearest integer,
// away from zero on a tie, and returns it as a big.Int.
func roundBigFloat(f *big.Float) *big.Int {
	half := big.NewFloat(0.5)
	rounded := new(big.Float).Add(f, half)
	i, _ := rounded.Int(nil)
	return i
}
