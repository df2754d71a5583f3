package protocol

import "math/big"

// TierKind is the tag of the PriceTier variant.
type TierKind string

const (
	TierFree     TierKind = "free"
	TierStandard TierKind = "standard"
	TierDynamic  TierKind = "dynamic"
)

// ChatPricingRequest is the shape a dynamic estimator consumes: a chat
// completion request body, before it is forwarded to the inference adapter.
type ChatPricingRequest struct {
	Model     string
	Messages  []ChatMessage
	MaxTokens *int
}

// ChatMessage is a single OpenAI-compatible chat message.
type ChatMessage struct {
	Role    string
	Content string
}

// Estimator computes a PriceEstimate from a chat pricing request for a
// chosen settlement token. Dynamic tiers carry one of these instead of a
// fixed amount.
type Estimator func(req ChatPricingRequest, token TokenKind) (PriceEstimate, error)

// PriceTier is the tagged variant {free | standard | dynamic} described in
// the data model. Only the field matching Kind is meaningful.
type PriceTier struct {
	Kind TierKind

	// StandardSTX is the fixed price in whole native-chain units (STX) for a
	// TierStandard tier, e.g. 0.01 for one cent's worth of STX.
	StandardSTX float64

	// Estimator produces a PriceEstimate from the request body for a
	// TierDynamic tier. Registration is static: this is set once when the
	// tier is built and never swapped at runtime.
	Estimator Estimator
}

// Free builds a TierFree price tier.
func Free() PriceTier { return PriceTier{Kind: TierFree} }

// Standard builds a TierStandard price tier fixed at stxAmount native units.
func Standard(stxAmount float64) PriceTier {
	return PriceTier{Kind: TierStandard, StandardSTX: stxAmount}
}

// Dynamic builds a TierDynamic price tier driven by the given estimator.
func Dynamic(estimator Estimator) PriceTier {
	return PriceTier{Kind: TierDynamic, Estimator: estimator}
}

// PriceEstimate is the outcome of pricing a single request: an amount in
// atomic units of the chosen token, plus enough metadata for the challenge's
// discovery extension and for debugging.
type PriceEstimate struct {
	Amount               *big.Int
	Token                TokenKind
	ModelID              string
	EstimatedInputTokens  *int
	EstimatedOutputTokens *int
	USDPreMargin          float64
	USDPostMargin         float64
}

// ClampToMinimum raises Amount to the token's compiled-in minimum if it
// would otherwise be lower, enforcing the PriceEstimate invariant
// amount >= minimum(token, tier).
func (e *PriceEstimate) ClampToMinimum() {
	min := big.NewInt(Minimum(e.Token))
	if e.Amount == nil || e.Amount.Cmp(min) < 0 {
		e.Amount = min
	}
}
