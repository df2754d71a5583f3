// Package protocol defines the wire types of the x402 payment challenge/response
// protocol used by the gateway: networks, tokens, price tiers, challenges, and
// settlement results. It mirrors the shape of the upstream x402 specification
// but is scoped to a single non-EVM chain family (Stacks) with a small,
// closed set of tokens.
package protocol

import "fmt"

// NetworkKind is the chain environment the gateway is currently serving.
type NetworkKind string

const (
	Mainnet NetworkKind = "mainnet"
	Testnet NetworkKind = "testnet"
)

// stacksChainID mirrors the Stacks node's network-id, used only to build the
// CAIP-2 style identifier below; it has no bearing on settlement itself since
// the gateway never talks to the chain directly.
var stacksChainID = map[NetworkKind]string{
	Mainnet: "1",
	Testnet: "2147483648",
}

// NetworkIdentity binds a network environment to the address that should
// receive settled payments on it.
type NetworkIdentity struct {
	Kind      NetworkKind
	Recipient string
}

// ChainIdentifier returns a CAIP-2 style "namespace:reference" identifier,
// e.g. "stacks:1" for mainnet, so clients can unambiguously address the
// network the gateway expects payment on.
func (n NetworkIdentity) ChainIdentifier() string {
	ref, ok := stacksChainID[n.Kind]
	if !ok {
		ref = "0"
	}
	return fmt.Sprintf("stacks:%s", ref)
}

// Valid reports whether the network kind is one of the two supported values.
func (n NetworkIdentity) Valid() bool {
	return n.Kind == Mainnet || n.Kind == Testnet
}
