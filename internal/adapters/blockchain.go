package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBlockchainTimeout bounds a single lookup-provider round trip.
const DefaultBlockchainTimeout = 15 * time.Second

// BlockchainProvider is a thin client for the external Stacks blockchain
// lookup API. Every method here does no interpretation of its own: address
// info, clarity/transaction decoding, account profiles, and message/SIP-018
// signature verification are all delegated upstream and the response body
// is passed through, matching the "thin wrapper" framing of this surface.
type BlockchainProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewBlockchainProvider builds a provider pointed at baseURL. apiKey may be
// empty; the upstream lookup API is optional per the process configuration.
func NewBlockchainProvider(baseURL, apiKey string) *BlockchainProvider {
	return &BlockchainProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultBlockchainTimeout},
	}
}

func (b *BlockchainProvider) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal blockchain request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build blockchain request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("X-API-Key", b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blockchain lookup network error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read blockchain response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("blockchain lookup upstream error: status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

// Address fetches STX/token balances and nonce info for an account.
func (b *BlockchainProvider) Address(ctx context.Context, address string) (json.RawMessage, error) {
	return b.do(ctx, http.MethodGet, "/extended/v1/address/"+address+"/balances", nil)
}

// Profile fetches the transaction and asset history summary for an account.
func (b *BlockchainProvider) Profile(ctx context.Context, address string) (json.RawMessage, error) {
	return b.do(ctx, http.MethodGet, "/extended/v1/address/"+address+"/transactions", nil)
}

// DecodeClarity decodes a hex-encoded Clarity value into its JSON
// representation.
func (b *BlockchainProvider) DecodeClarity(ctx context.Context, hex string) (json.RawMessage, error) {
	return b.do(ctx, http.MethodPost, "/v2/clarity/decode", map[string]string{"hex": hex})
}

// DecodeTransaction decodes a raw hex-encoded transaction.
func (b *BlockchainProvider) DecodeTransaction(ctx context.Context, hex string) (json.RawMessage, error) {
	return b.do(ctx, http.MethodPost, "/extended/v1/tx/decode", map[string]string{"tx": hex})
}

// VerifyMessage verifies a signed structured message against a public key
// or address.
func (b *BlockchainProvider) VerifyMessage(ctx context.Context, message, signature, publicKey string) (json.RawMessage, error) {
	return b.do(ctx, http.MethodPost, "/v1/verify/message", map[string]string{
		"message":   message,
		"signature": signature,
		"publicKey": publicKey,
	})
}

// VerifySIP018 verifies a SIP-018 structured-data signature.
func (b *BlockchainProvider) VerifySIP018(ctx context.Context, domain, payload json.RawMessage, signature, publicKey string) (json.RawMessage, error) {
	return b.do(ctx, http.MethodPost, "/v1/verify/sip018", map[string]interface{}{
		"domain":    domain,
		"payload":   payload,
		"signature": signature,
		"publicKey": publicKey,
	})
}
