// Package facilitator is a thin typed client for the external settlement
// relay: the black-box service that verifies a client's signed transfer,
// submits it on-chain, and reports back the payer address. The gateway
// never signs or broadcasts anything itself; this package only shuttles the
// opaque payload back and forth.
package facilitator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stacks402/gateway/internal/protocol"
)

// DefaultTimeout is the settlement call budget from the concurrency model:
// long enough for an on-chain broadcast + confirmation round trip.
const DefaultTimeout = 120 * time.Second

// Client talks to the settlement relay's /settle endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a facilitator client pointed at baseURL, with the
// settlement timeout set at construction as required by the concurrency
// model (§5).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type settleRequest struct {
	Payload      *protocol.PaymentPayload      `json:"payload"`
	Requirements protocol.PaymentRequirement   `json:"requirements"`
}

// Settle hands a signed payload and the requirement the client accepted to
// the relay. A non-nil error means the call itself failed (transport,
// timeout, malformed relay response) — the caller should classify err's
// message the same way it would classify a structured failure. A non-nil
// *protocol.SettlementResult with Success=false is the relay's own verdict
// (insufficient funds, stale nonce, etc.) carried in ErrorReason.
func (c *Client) Settle(ctx context.Context, payload *protocol.PaymentPayload, requirement protocol.PaymentRequirement) (*protocol.SettlementResult, error) {
	body, err := json.Marshal(settleRequest{Payload: payload, Requirements: requirement})
	if err != nil {
		return nil, fmt.Errorf("marshal settle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/settle", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build settle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("settlement relay network error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read settle response: %w", err)
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, fmt.Errorf("settlement relay unavailable (503): %s", string(raw))
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("settlement relay broadcast failure: status %d: %s", resp.StatusCode, string(raw))
	}

	var result protocol.SettlementResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("invalid settlement relay response: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("settlement relay returned success without a payer address")
	}

	return &result, nil
}
