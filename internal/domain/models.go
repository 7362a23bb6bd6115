package domain

import "math/big"

// Signal is an externally derived trading hint. Signals are produced fresh
// each tick and never persisted or mutated.
type Signal struct {
	Ticker   string
	Strength float64
}

// StrikePlan is the computed sizing for one attempt on one network.
// Fee and balance conditions may have changed by the next tick, so a plan
// must be consumed immediately or discarded.
type StrikePlan struct {
	// LoanAmount is the flash-loan principal in wei.
	LoanAmount *big.Int
	// PremiumAmount is the balance headroom attached as call value, in wei.
	PremiumAmount *big.Int
	// FeeRate is the effective unit fee in wei per gas.
	FeeRate *big.Int
	// PriorityFee is the priority fee in wei per gas.
	PriorityFee *big.Int
}
