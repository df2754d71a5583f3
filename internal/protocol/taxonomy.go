package protocol

import "strings"

// FailureKind is the closed taxonomy that free-form settlement relay error
// strings are classified into.
type FailureKind string

const (
	UnexpectedSettle         FailureKind = "unexpected_settle"
	InsufficientFunds        FailureKind = "insufficient_funds"
	InvalidTransactionState  FailureKind = "invalid_transaction_state"
	AmountInsufficient       FailureKind = "amount_insufficient"
	InvalidPayload           FailureKind = "invalid_payload"
	RecipientMismatch        FailureKind = "recipient_mismatch"
	SenderMismatch           FailureKind = "sender_mismatch"
)

// Classification is the HTTP-facing consequence of a FailureKind: the status
// code to return and, when the failure is one the client should retry on
// its own schedule, the number of seconds to advertise in Retry-After.
type Classification struct {
	Kind       FailureKind
	Status     int
	RetryAfter int // 0 means no Retry-After header
}

// classifyRule pairs a substring match against the lowercased error string
// with the classification it produces. Rules are evaluated in order; the
// first match wins, matching the table in the payment state machine design.
type classifyRule struct {
	substrings []string
	result     Classification
}

var rules = []classifyRule{
	{[]string{"network", "timeout"}, Classification{UnexpectedSettle, 502, 5}},
	{[]string{"503", "unavailable"}, Classification{UnexpectedSettle, 503, 30}},
	{[]string{"insufficient", "balance"}, Classification{InsufficientFunds, 402, 0}},
	{[]string{"expired", "nonce", "stale"}, Classification{InvalidTransactionState, 402, 0}},
	{[]string{"amount low", "below minimum"}, Classification{AmountInsufficient, 402, 0}},
	{[]string{"invalid", "signature"}, Classification{InvalidPayload, 400, 0}},
	{[]string{"recipient mismatch"}, Classification{RecipientMismatch, 400, 0}},
	{[]string{"broadcast failure"}, Classification{UnexpectedSettle, 502, 5}},
	{[]string{"tx failed"}, Classification{InvalidTransactionState, 402, 0}},
	{[]string{"tx pending"}, Classification{InvalidTransactionState, 402, 10}},
	{[]string{"sender mismatch"}, Classification{SenderMismatch, 400, 0}},
	{[]string{"unsupported scheme"}, Classification{InvalidPayload, 400, 0}},
}

var defaultClassification = Classification{UnexpectedSettle, 500, 5}

// Classify maps a free-form settlement relay error string into the closed
// failure taxonomy. Classifying the same string twice always yields the
// same Classification: this function is pure.
func Classify(errMessage string) Classification {
	lower := strings.ToLower(errMessage)
	for _, rule := range rules {
		for _, substr := range rule.substrings {
			if strings.Contains(lower, substr) {
				return rule.result
			}
		}
	}
	return defaultClassification
}
