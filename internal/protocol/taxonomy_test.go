package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMapsKnownPatterns(t *testing.T) {
	cases := []struct {
		name string
		err  string
		want Classification
	}{
		{"network error", "network error contacting relay", Classification{UnexpectedSettle, 502, 5}},
		{"timeout", "request timeout", Classification{UnexpectedSettle, 502, 5}},
		{"unavailable", "503 service unavailable", Classification{UnexpectedSettle, 503, 30}},
		{"insufficient balance", "insufficient balance for transfer", Classification{InsufficientFunds, 402, 0}},
		{"expired nonce", "nonce expired, please retry", Classification{InvalidTransactionState, 402, 0}},
		{"below minimum", "amount below minimum threshold", Classification{AmountInsufficient, 402, 0}},
		{"invalid signature", "invalid signature on payload", Classification{InvalidPayload, 400, 0}},
		{"recipient mismatch", "recipient mismatch detected", Classification{RecipientMismatch, 400, 0}},
		{"broadcast failure", "broadcast failure on submit", Classification{UnexpectedSettle, 502, 5}},
		{"tx failed", "tx failed on chain", Classification{InvalidTransactionState, 402, 0}},
		{"tx pending", "tx pending confirmation", Classification{InvalidTransactionState, 402, 10}},
		{"sender mismatch", "sender mismatch found", Classification{SenderMismatch, 400, 0}},
		{"unsupported scheme", "unsupported scheme requested", Classification{InvalidPayload, 400, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, Classification{InsufficientFunds, 402, 0}, Classify("INSUFFICIENT BALANCE"))
}

func TestClassifyUnknownFallsBackToDefault(t *testing.T) {
	assert.Equal(t, defaultClassification, Classify("something entirely unrecognized happened"))
}

func TestClassifyIsPure(t *testing.T) {
	first := Classify("insufficient balance")
	second := Classify("insufficient balance")
	assert.Equal(t, first, second, "classifying the same string twice must yield the same result")
}

func TestClassifyFirstMatchingRuleWins(t *testing.T) {
	// "network" appears first in the rule table; an error string matching
	// both an earlier and a later rule must classify under the earlier one.
	got := Classify("network insufficient balance")
	assert.Equal(t, Classification{UnexpectedSettle, 502, 5}, got)
}
