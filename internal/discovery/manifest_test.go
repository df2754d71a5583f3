package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacks402/gateway/internal/pricing"
	"github.com/stacks402/gateway/internal/protocol"
	"github.com/stacks402/gateway/internal/registry"
)

func testGenerator() Generator {
	return Generator{
		Network:       protocol.NetworkIdentity{Kind: protocol.Mainnet, Recipient: "SP000RECIPIENT"},
		BaseURL:       "https://gateway.example",
		PricingEngine: pricing.NewEngine(nil, pricing.CompiledFallback),
	}
}

func TestGenerateSkipsFreeEndpoints(t *testing.T) {
	reg := registry.New()
	reg.Register(registry.Endpoint{Method: "GET", Path: "/health", Tier: protocol.Free()})

	manifest, err := testGenerator().Generate(reg, 100)
	require.NoError(t, err)
	assert.Empty(t, manifest.Items, "free-tier endpoints never appear in the priced manifest")
}

func TestGenerateIncludesStandardTierWithAllSupportedTokens(t *testing.T) {
	reg := registry.New()
	reg.Register(registry.Endpoint{Method: "POST", Path: "/hash/sha256", Tier: protocol.Standard(0.01), Description: "hash it"})

	manifest, err := testGenerator().Generate(reg, 100)
	require.NoError(t, err)
	require.Len(t, manifest.Items, 1)
	assert.Equal(t, "https://gateway.example/hash/sha256", manifest.Items[0].Resource)
	assert.NotEmpty(t, manifest.Items[0].Accepts)
	for _, req := range manifest.Items[0].Accepts {
		assert.NotEqual(t, "0", req.Amount, "a standard-tier amount is never advertised as zero")
	}
}

func TestGenerateDropsDynamicEndpointItCannotPriceWithoutABody(t *testing.T) {
	// No fallback and no catalog means resolveModelPricing("") always fails:
	// the manifest must drop the entry rather than 500 the whole document.
	reg := registry.New()
	reg.Register(registry.Endpoint{
		Method: "POST", Path: "/inference/openrouter/chat",
		Tier: protocol.Dynamic(func(req protocol.ChatPricingRequest, token protocol.TokenKind) (protocol.PriceEstimate, error) {
			return pricing.NewEngine(nil, nil).DynamicEstimate(req, token)
		}),
	})

	gen := testGenerator()
	gen.PricingEngine = pricing.NewEngine(nil, nil)

	manifest, err := gen.Generate(reg, 100)
	require.NoError(t, err, "an unpriceable dynamic endpoint must not fail the whole manifest")
	assert.Empty(t, manifest.Items)
}

func TestGenerateKeepsDynamicEndpointWithFallbackPricing(t *testing.T) {
	reg := registry.New()
	reg.Register(registry.Endpoint{
		Method: "POST", Path: "/inference/openrouter/chat",
		Tier: protocol.Dynamic(func(req protocol.ChatPricingRequest, token protocol.TokenKind) (protocol.PriceEstimate, error) {
			return pricing.NewEngine(nil, map[string]pricing.ModelPricing{"": {PromptPerK: 0.001, CompletionPerK: 0.002}}).DynamicEstimate(req, token)
		}),
	})

	manifest, err := testGenerator().Generate(reg, 100)
	require.NoError(t, err)
	require.Len(t, manifest.Items, 1)
}

func TestGenerateNormalizesGinRouteParamsToTemplateSyntax(t *testing.T) {
	reg := registry.New()
	reg.Register(registry.Endpoint{Method: "GET", Path: "/stacks/address/:address/balance", Tier: protocol.Standard(0.005)})

	manifest, err := testGenerator().Generate(reg, 100)
	require.NoError(t, err)
	require.Len(t, manifest.Items, 1)
	assert.Equal(t, "https://gateway.example/stacks/address/{address}/balance", manifest.Items[0].Resource)
}

func TestGenerateAttachesDiscoveryExtraUnderBazaarExtension(t *testing.T) {
	reg := registry.New()
	reg.Register(registry.Endpoint{
		Method: "POST", Path: "/hash/sha256", Tier: protocol.Standard(0.01),
		DiscoveryExtra: map[string]interface{}{"inputSchema": "object"},
	})

	manifest, err := testGenerator().Generate(reg, 100)
	require.NoError(t, err)
	require.Len(t, manifest.Items, 1)
	require.NotNil(t, manifest.Items[0].Extensions)
	assert.Equal(t, map[string]interface{}{"inputSchema": "object"}, manifest.Items[0].Extensions["bazaar"])
}
