// Package domain contains the pure types shared across the governor.
// The domain layer has no infrastructure dependencies: amounts are big.Int
// wei values, addresses and transaction hashes are plain hex strings, and
// the chain capability surface is a narrow interface implemented by adapters.
package domain

import (
	"context"
	"math/big"
)

// FeeData holds the current fee conditions of a network.
type FeeData struct {
	// BaseFee is the latest block base fee in wei.
	BaseFee *big.Int
	// TipCap is the suggested priority fee in wei. May be nil when the
	// backend does not expose a suggestion; callers fall back to the
	// network's configured hint.
	TipCap *big.Int
}

// StrikeRequest is the fully-sized action payload for one strike attempt.
// It is built from a StrikePlan and is valid only for immediate use.
type StrikeRequest struct {
	// Path describes the swap route the executor should take.
	Path string
	// LoanAmount is the flash-loan principal in wei.
	LoanAmount *big.Int
	// Value is the premium attached to the call, in wei.
	Value *big.Int
	// GasLimit is the fixed per-strike gas budget.
	GasLimit uint64
	// MaxFeePerGas and MaxPriorityFee are the plan's fee parameters in wei.
	MaxFeePerGas   *big.Int
	MaxPriorityFee *big.Int
}

// ChainClient is the capability surface the governor consumes per network.
// One adapter exists per network family; the governor depends only on this
// interface so heterogeneous backends stay interchangeable.
type ChainClient interface {
	// GetBalance returns the wei balance of the signing account.
	GetBalance(ctx context.Context) (*big.Int, error)

	// GetFeeData returns the network's current fee conditions.
	GetFeeData(ctx context.Context) (*FeeData, error)

	// Simulate executes the request against current state without
	// submitting it. A revert is returned as an error.
	Simulate(ctx context.Context, req StrikeRequest) error

	// Submit signs and broadcasts the request, returning a handle
	// (transaction hash) for the confirmation wait.
	Submit(ctx context.Context, req StrikeRequest) (string, error)

	// AwaitConfirmation blocks until the submitted action has the given
	// number of confirmations, reporting whether it was accepted.
	AwaitConfirmation(ctx context.Context, handle string, confirmations uint64) (bool, error)

	// CanSign reports whether a signing identity is bound to this client.
	// Networks without one are read-only and excluded from strikes.
	CanSign() bool
}
