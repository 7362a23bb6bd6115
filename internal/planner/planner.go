// Package planner computes bounded strike sizing from observed account
// state. Planning failures of any kind mean "skip this network this tick";
// the planner never returns an error to its caller.
package planner

import (
	"context"
	"math/big"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/harrier/internal/config"
	"github.com/aristath/harrier/internal/domain"
)

const (
	// GasBudget is the fixed gas allowance for one strike transaction.
	GasBudget uint64 = 1_200_000

	// The flash-loan premium is 9 bps of the principal, so a premium of P
	// supports a principal of P * 10000 / 9.
	leverageNum = 10_000
	leverageDen = 9
)

// FixedBuffer is the flat headroom kept on top of gas cost and safety
// margin: 0.005 ether in wei.
var FixedBuffer = big.NewInt(5_000_000_000_000_000)

// Planner sizes strike plans against live balance and fee conditions.
type Planner struct {
	log zerolog.Logger
}

// New creates a planner.
func New(log zerolog.Logger) *Planner {
	return &Planner{
		log: log.With().Str("component", "planner").Logger(),
	}
}

// Plan computes the sizing for one network, or nil when no bounded action
// is possible. Nil is an expected, frequent outcome: read-only session,
// failed balance/fee read, or insufficient headroom all land here.
func (p *Planner) Plan(ctx context.Context, chain domain.ChainClient, cfg config.NetworkConfig) *domain.StrikePlan {
	if !chain.CanSign() {
		return nil
	}

	var (
		balance *big.Int
		fees    *domain.FeeData
	)

	// Balance and fee conditions are independent reads; fetch them
	// concurrently and treat any failure as "skip this tick".
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = chain.GetBalance(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		fees, err = chain.GetFeeData(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		p.log.Debug().Err(err).Str("network", cfg.Name).Msg("Plan skipped, state read failed")
		return nil
	}

	// The backend's live tip suggestion wins over the static hint when it
	// provides one; read-only or pre-London backends leave it nil.
	priorityFee := cfg.PriorityFeeHint
	if fees.TipCap != nil && fees.TipCap.Sign() > 0 {
		priorityFee = fees.TipCap
	}

	// effective unit fee = baseFee * 1.2 + priorityFee
	effectiveFee := new(big.Int).Mul(fees.BaseFee, big.NewInt(12))
	effectiveFee.Div(effectiveFee, big.NewInt(10))
	effectiveFee.Add(effectiveFee, priorityFee)

	// overhead = gasBudget * effectiveFee + safetyMargin + fixedBuffer
	overhead := new(big.Int).Mul(effectiveFee, new(big.Int).SetUint64(GasBudget))
	overhead.Add(overhead, cfg.SafetyMargin)
	overhead.Add(overhead, FixedBuffer)

	// Strictly more than the overhead is required; equality leaves no
	// premium to attach.
	if balance.Cmp(overhead) <= 0 {
		p.log.Debug().
			Str("network", cfg.Name).
			Str("balance", balance.String()).
			Str("overhead", overhead.String()).
			Msg("Plan skipped, insufficient headroom")
		return nil
	}

	premium := new(big.Int).Sub(balance, overhead)
	loan := new(big.Int).Mul(premium, big.NewInt(leverageNum))
	loan.Div(loan, big.NewInt(leverageDen))

	return &domain.StrikePlan{
		LoanAmount:    loan,
		PremiumAmount: premium,
		FeeRate:       effectiveFee,
		PriorityFee:   priorityFee,
	}
}
