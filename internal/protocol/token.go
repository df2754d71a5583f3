package protocol

// TokenKind is the closed set of tokens the gateway will accept payment in.
type TokenKind string

const (
	Native      TokenKind = "Native"
	BridgedBTC  TokenKind = "BridgedBTC"
	BridgedUSD  TokenKind = "BridgedUSD"
)

// ContractID scopes a SIP-010 fungible token to a deployer address and
// contract name, e.g. ("SP3Y2ZSH8P7D50B0VBTSX11S7XSG24M1VB9YFQA4K", "bridged-usd").
type ContractID struct {
	Address string
	Name    string
}

// TokenInfo carries everything the pricing engine needs to know about a
// token: how many atomic units make up one whole unit, the fixed USD rate
// used purely to keep tier pricing comparable across tokens, and, for
// non-native tokens, the SIP-010 contract that mints it on a given network.
type TokenInfo struct {
	Decimals int
	USDRate  float64
	// Contracts maps network kind to the SIP-010 contract for that network.
	// Native carries no entry: the invariant Native => no contract is
	// enforced by simply never populating this map for Native.
	Contracts map[NetworkKind]ContractID
}

// tokenTable is the compiled-in registry of supported tokens. It is a
// process-wide constant, not configuration: adding a new token kind is a
// code change, matching the "closed set" invariant in the data model.
var tokenTable = map[TokenKind]TokenInfo{
	Native: {
		Decimals: 6,
		USDRate:  0.55,
	},
	BridgedBTC: {
		Decimals: 8,
		USDRate:  60000.0,
		Contracts: map[NetworkKind]ContractID{
			Mainnet: {Address: "SP3DX3H4FEYZJZ586MFBS25ZW3HZDMEW92260R2PR", Name: "bridged-btc"},
			Testnet: {Address: "ST3DX3H4FEYZJZ586MFBS25ZW3HZDMEW9269RXAAA", Name: "bridged-btc"},
		},
	},
	BridgedUSD: {
		Decimals: 6,
		USDRate:  1.0,
		Contracts: map[NetworkKind]ContractID{
			Mainnet: {Address: "SP3Y2ZSH8P7D50B0VBTSX11S7XSG24M1VB9YFQA4K", Name: "bridged-usd"},
			Testnet: {Address: "ST3Y2ZSH8P7D50B0VBTSX11S7XSG24M1VB9Y3EAAA", Name: "bridged-usd"},
		},
	},
}

// minimumAtomic is the compiled-in minimum charge per token, expressed in
// atomic units of that token. It exists so that dust-priced dynamic
// estimates and misconfigured fixed tiers never advertise an amount too
// small for the settlement relay to bother with.
var minimumAtomic = map[TokenKind]int64{
	Native:     1000,
	BridgedBTC: 300,
	BridgedUSD: 1000,
}

// LookupToken returns the compiled-in info for a token kind. ok is false for
// an unrecognized kind.
func LookupToken(kind TokenKind) (TokenInfo, bool) {
	info, ok := tokenTable[kind]
	return info, ok
}

// Minimum returns the minimum atomic-unit amount the gateway will ever
// advertise for the given token.
func Minimum(kind TokenKind) int64 {
	if v, ok := minimumAtomic[kind]; ok {
		return v
	}
	return 0
}

// Contract returns the SIP-010 contract for the token on the given network,
// if one exists. Native never has one, per the data-model invariant.
func (t TokenInfo) Contract(network NetworkKind) (ContractID, bool) {
	c, ok := t.Contracts[network]
	return c, ok
}

// AssetDesignation formats the token as the x402 "asset" field: the bare
// string "native" for the chain's native asset, or "address.name" for a
// SIP-010 token on the configured network.
func AssetDesignation(kind TokenKind, network NetworkKind) string {
	if kind == Native {
		return "native"
	}
	info, ok := tokenTable[kind]
	if !ok {
		return string(kind)
	}
	c, ok := info.Contract(network)
	if !ok {
		return string(kind)
	}
	return c.Address + "." + c.Name
}

// SupportedTokens returns every token kind that is usable on the given
// network: Native is always present, bridged tokens only if a contract has
// been compiled in for that network.
func SupportedTokens(network NetworkKind) []TokenKind {
	tokens := []TokenKind{Native}
	for _, kind := range []TokenKind{BridgedBTC, BridgedUSD} {
		if _, ok := tokenTable[kind].Contract(network); ok {
			tokens = append(tokens, kind)
		}
	}
	return tokens
}
