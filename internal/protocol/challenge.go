package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// CurrentVersion is the x402 protocol version this gateway speaks.
const CurrentVersion = 2

// PaymentRequirement is one entry in a PaymentRequired's Accepts list: one
// acceptable way to pay for the resource, denominated in a single token.
type PaymentRequirement struct {
	Scheme            string                 `json:"scheme"`
	Network           string                 `json:"network"`
	Amount            string                 `json:"amount"`
	Asset             string                 `json:"asset"`
	PayTo             string                 `json:"payTo"`
	MaxTimeoutSeconds int                    `json:"maxTimeoutSeconds"`
	Extra             map[string]interface{} `json:"extra,omitempty"`

	// Token is the settlement token this requirement was priced in. It is
	// not part of the wire format (the client identifies the token via
	// Asset); the gateway keeps it around internally to match an incoming
	// payload back to the requirement it was quoted against.
	Token TokenKind `json:"-"`
}

// ResourceInfo describes the resource a challenge is guarding.
type ResourceInfo struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PaymentRequired is the body (and, base64-JSON-encoded, the
// "payment-required" header) of a 402 challenge response.
type PaymentRequired struct {
	X402Version int                    `json:"x402Version"`
	Resource    ResourceInfo           `json:"resource"`
	Accepts     []PaymentRequirement   `json:"accepts"`
	Extensions  map[string]interface{} `json:"extensions,omitempty"`
}

// EncodeToBase64 renders the challenge as base64(JSON), for the
// "payment-required" response header.
func (p PaymentRequired) EncodeToBase64() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payment-required: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// PaymentPayload is the client's signed transfer, decoded from the
// "payment-signature" (or legacy X-PAYMENT) request header. The gateway
// never inspects Payload's internal structure — it is forwarded verbatim to
// the settlement relay.
type PaymentPayload struct {
	X402Version int                 `json:"x402Version"`
	Accepted    PaymentRequirement  `json:"accepted"`
	Payload     json.RawMessage     `json:"payload"`
}

// DecodePaymentPayloadFromBase64 parses the client's payment header. It only
// validates JSON shape and protocol version; it does not validate the
// opaque Payload blob.
func DecodePaymentPayloadFromBase64(encoded string) (*PaymentPayload, error) {
	if encoded == "" {
		return nil, fmt.Errorf("empty payment payload")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payment payload: %w", err)
	}
	var payload PaymentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid payment payload json: %w", err)
	}
	if payload.X402Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported x402 version %d, expected %d", payload.X402Version, CurrentVersion)
	}
	return &payload, nil
}

// SettlementResult is the outcome of handing a payload to the settlement
// relay. Invariant: Success implies Payer is non-empty.
type SettlementResult struct {
	Success     bool   `json:"success"`
	Transaction string `json:"transaction,omitempty"`
	Payer       string `json:"payer,omitempty"`
	ErrorReason string `json:"errorReason,omitempty"`
}

// EncodeToBase64 renders the settlement result as base64(JSON), for the
// "payment-response" response header.
func (s SettlementResult) EncodeToBase64() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode payment-response: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Valid enforces the SettlementResult invariant: success implies a payer
// address is present.
func (s SettlementResult) Valid() bool {
	if s.Success && s.Payer == "" {
		return false
	}
	return true
}
