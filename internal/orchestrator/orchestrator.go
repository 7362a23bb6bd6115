// Package orchestrator drives one gated strike attempt end to end:
// plan, trust gate, simulate, submit, confirm, learn. Every gate contains
// its own failure; nothing an attempt does can surface past it.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/harrier/internal/config"
	"github.com/aristath/harrier/internal/domain"
	"github.com/aristath/harrier/internal/planner"
	"github.com/aristath/harrier/internal/registry"
)

const (
	// trustGate is the execution threshold: only sources scoring strictly
	// above it may trigger a strike. A score of exactly 0.4 is rejected.
	trustGate = 0.4

	// defaultTicker is the pair used for baseline attempts that carry no
	// external signal.
	defaultTicker = "USDC"

	confirmations         = 1
	defaultConfirmTimeout = 90 * time.Second
)

// TrustLedger is the learning surface the orchestrator reports into.
type TrustLedger interface {
	Get(source string) float64
	Update(source string, success bool) float64
}

// StrikePlanner computes the sizing for one attempt.
type StrikePlanner interface {
	Plan(ctx context.Context, chain domain.ChainClient, cfg config.NetworkConfig) *domain.StrikePlan
}

// Orchestrator gates and executes strike attempts.
type Orchestrator struct {
	planner        StrikePlanner
	trust          TrustLedger
	confirmTimeout time.Duration
	log            zerolog.Logger

	// inFlight tracks confirmation waits, which may outlive the tick that
	// started them. Shutdown and tests join on it.
	inFlight sync.WaitGroup
}

// New creates an orchestrator.
func New(strikePlanner StrikePlanner, trust TrustLedger, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		planner:        strikePlanner,
		trust:          trust,
		confirmTimeout: defaultConfirmTimeout,
		log:            log.With().Str("component", "orchestrator").Logger(),
	}
}

// Attempt runs one gated strike against one network. It never returns an
// error: every failure class is contained here, and only a submitted
// transaction's confirmed outcome feeds the trust ledger.
func (o *Orchestrator) Attempt(ctx context.Context, session *registry.Session, ticker, source string) {
	if session == nil || !session.CanStrike() {
		return
	}

	plan := o.planner.Plan(ctx, session.Chain, session.Config)
	if plan == nil {
		return
	}

	// Trust gate. This read is deliberately not serialized against
	// updates in flight for the same source; a stale score within one
	// tick is acceptable.
	score := o.trust.Get(source)
	if score <= trustGate {
		o.log.Debug().
			Str("network", session.Config.Name).
			Str("source", source).
			Float64("score", score).
			Msg("Attempt rejected by trust gate")
		return
	}

	attemptID := uuid.New().String()
	log := o.log.With().
		Str("attempt", attemptID).
		Str("network", session.Config.Name).
		Str("source", source).
		Logger()

	req := buildRequest(plan, ticker)

	// A simulation failure means the action never left the local stage;
	// there is nothing to score the source on.
	if err := session.Chain.Simulate(ctx, req); err != nil {
		log.Debug().Err(err).Msg("Simulation rejected strike")
		return
	}

	handle, err := session.Chain.Submit(ctx, req)
	if err != nil {
		if domain.IsInsufficientFunds(err) {
			// Expected race: the plan went stale between sizing and
			// submission.
			log.Debug().Msg("Strike skipped, plan went stale")
			return
		}
		log.Warn().Err(err).Msg("Strike submission aborted")
		return
	}

	log.Info().
		Str("tx", handle).
		Str("loan", plan.LoanAmount.String()).
		Str("premium", plan.PremiumAmount.String()).
		Msg("Strike submitted")

	// The confirmation wait runs on its own context: once submitted, an
	// attempt is never cancelled, even if its tick has long finished.
	o.inFlight.Add(1)
	go func() {
		defer o.inFlight.Done()

		confirmCtx, cancel := context.WithTimeout(context.Background(), o.confirmTimeout)
		defer cancel()

		accepted, err := session.Chain.AwaitConfirmation(confirmCtx, handle, confirmations)
		success := err == nil && accepted
		if err != nil {
			log.Warn().Err(err).Msg("Confirmation wait failed, counting as failed outcome")
		}

		newScore := o.trust.Update(source, success)
		log.Info().
			Bool("success", success).
			Float64("trust", newScore).
			Msg("Strike outcome recorded")
	}()
}

// WaitInFlight blocks until all outstanding confirmation waits have
// resolved into trust updates. Called on shutdown.
func (o *Orchestrator) WaitInFlight() {
	o.inFlight.Wait()
}

// buildRequest turns a plan into the fixed-shape executor payload.
func buildRequest(plan *domain.StrikePlan, ticker string) domain.StrikeRequest {
	if ticker == "" {
		ticker = defaultTicker
	}

	return domain.StrikeRequest{
		Path:           fmt.Sprintf("WETH->%s->WETH", ticker),
		LoanAmount:     plan.LoanAmount,
		Value:          plan.PremiumAmount,
		GasLimit:       planner.GasBudget,
		MaxFeePerGas:   plan.FeeRate,
		MaxPriorityFee: plan.PriorityFee,
	}
}
