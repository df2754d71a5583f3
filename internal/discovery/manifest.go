// Package discovery renders the gateway's x402.json manifest: a pure
// function of the endpoint registry and network configuration, with no
// side effects beyond reading the current time for the freshness stamp.
package discovery

import (
	"strings"

	"github.com/stacks402/gateway/internal/pricing"
	"github.com/stacks402/gateway/internal/protocol"
	"github.com/stacks402/gateway/internal/registry"
)

// ResourceEntry is one item of the manifest's resource list, matching the
// upstream x402 discovery document shape.
type ResourceEntry struct {
	Resource    string                        `json:"resource"`
	Type        string                        `json:"type"`
	X402Version int                           `json:"x402Version"`
	Accepts     []protocol.PaymentRequirement `json:"accepts"`
	LastUpdated int64                         `json:"lastUpdated"`
	Metadata    map[string]interface{}        `json:"metadata,omitempty"`
	Extensions  map[string]interface{}        `json:"extensions,omitempty"`
}

// Manifest is the full x402.json document.
type Manifest struct {
	X402Version int             `json:"x402Version"`
	Items       []ResourceEntry `json:"items"`
}

// Generator builds the manifest from a registry, pricing every advertised
// endpoint the same way the payment middleware would for a fresh request
// (empty body for dynamic tiers, since the manifest can't know a caller's
// prospective chat request in advance).
type Generator struct {
	Network       protocol.NetworkIdentity
	BaseURL       string
	PricingEngine *pricing.Engine
}

// Generate renders the manifest for the given registry. now is the unix
// timestamp stamped onto every entry's lastUpdated field; callers pass
// time.Now().Unix() so the function itself stays a pure computation over
// its inputs.
func (g Generator) Generate(reg *registry.Registry, now int64) (Manifest, error) {
	manifest := Manifest{X402Version: protocol.CurrentVersion}

	for _, ep := range reg.Endpoints() {
		if ep.Tier.Kind == protocol.TierFree {
			continue
		}

		accepts := g.priceForDiscovery(ep)
		if len(accepts) == 0 {
			// No token/tier combination could be priced without a live
			// request body (e.g. a dynamic endpoint's estimator needs a
			// model to look up) — per the discovery contract, unsupported
			// combinations yield amount 0 and are dropped, so the whole
			// entry is dropped rather than failing the manifest.
			continue
		}

		entry := ResourceEntry{
			Resource:    g.BaseURL + normalizePath(ep.Path),
			Type:        "http",
			X402Version: protocol.CurrentVersion,
			Accepts:     accepts,
			LastUpdated: now,
			Metadata: map[string]interface{}{
				"method":      ep.Method,
				"description": ep.Description,
				"category":    ep.Category,
			},
		}
		if len(ep.DiscoveryExtra) > 0 {
			entry.Extensions = map[string]interface{}{"bazaar": ep.DiscoveryExtra}
		}

		manifest.Items = append(manifest.Items, entry)
	}

	return manifest, nil
}

// priceForDiscovery prices ep for every supported token, dropping any
// token/tier combination that can't be priced without a live request body
// (spec: "unsupported token/tier combinations yield amount 0 and are
// dropped") rather than failing the whole manifest.
func (g Generator) priceForDiscovery(ep registry.Endpoint) []protocol.PaymentRequirement {
	var accepts []protocol.PaymentRequirement
	for _, token := range protocol.SupportedTokens(g.Network.Kind) {
		var (
			estimate protocol.PriceEstimate
			err      error
		)
		switch ep.Tier.Kind {
		case protocol.TierStandard:
			estimate, err = pricing.FixedTierEstimate(ep.Tier, token)
		case protocol.TierDynamic:
			estimate, err = ep.Tier.Estimator(protocol.ChatPricingRequest{}, token)
		}
		if err != nil {
			continue
		}

		accepts = append(accepts, protocol.PaymentRequirement{
			Scheme:            "exact",
			Network:           g.Network.ChainIdentifier(),
			Amount:            estimate.Amount.String(),
			Asset:             protocol.AssetDesignation(token, g.Network.Kind),
			PayTo:             g.Network.Recipient,
			MaxTimeoutSeconds: 60,
			Token:             token,
		})
	}
	return accepts
}

// normalizePath rewrites gin's ":name" route-parameter syntax into the
// "{name}" template syntax the discovery manifest documents, so a path like
// "/stacks/address/:address" is advertised as "/stacks/address/{address}".
// Routing syntax is an internal wiring detail; the manifest speaks its own
// wire format regardless of which router produced the route.
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			segments[i] = "{" + strings.TrimPrefix(seg, ":") + "}"
		}
	}
	return strings.Join(segments, "/")
}
