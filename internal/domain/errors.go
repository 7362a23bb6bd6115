package domain

import "strings"

// IsInsufficientFunds reports whether a submission error is the expected
// insufficient-funds race: the plan was sized against a balance that went
// stale before the transaction reached the network. Matched on the error
// text because every EVM backend phrases it the same way while wrapping it
// in its own error types.
func IsInsufficientFunds(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "insufficient funds")
}
