// Package engine runs the governor's tick loop: gather signals, fan out
// one strike attempt per network and signal, join with all-settle
// semantics, sleep, repeat. The loop only ends with process shutdown; the
// single fatal condition is missing strike credentials, checked once
// before the first tick.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/harrier/internal/domain"
	"github.com/aristath/harrier/internal/registry"
)

// Source identifiers for trust bookkeeping. Externally-sourced signals
// share one trust bucket; ticks without any external signal still get one
// speculative attempt per network, scored under their own bucket.
const (
	SourceNews     = "news"
	SourceBaseline = "baseline"
)

// ErrMissingCredentials halts startup when the strike loop preconditions
// (signing key and executor address) are not configured.
var ErrMissingCredentials = errors.New("signing key and executor address are required to start the strike loop")

// SignalGatherer produces the signal batch for one tick.
type SignalGatherer interface {
	Gather(ctx context.Context) []domain.Signal
}

// Attempter runs one contained strike attempt.
type Attempter interface {
	Attempt(ctx context.Context, session *registry.Session, ticker, source string)
}

// Config holds the engine's collaborators and timing.
type Config struct {
	Registry       *registry.Registry
	Signals        SignalGatherer
	Orchestrator   Attempter
	TickInterval   time.Duration
	HasCredentials bool
}

// Engine is the scheduler driving the unbounded tick sequence.
type Engine struct {
	registry *registry.Registry
	signals  SignalGatherer
	orch     Attempter
	interval time.Duration
	hasCreds bool
	log      zerolog.Logger
}

// New creates an engine.
func New(cfg Config, log zerolog.Logger) *Engine {
	return &Engine{
		registry: cfg.Registry,
		signals:  cfg.Signals,
		orch:     cfg.Orchestrator,
		interval: cfg.TickInterval,
		hasCreds: cfg.HasCredentials,
		log:      log.With().Str("component", "engine").Logger(),
	}
}

// Run executes ticks until the context is cancelled. It returns
// ErrMissingCredentials without entering the loop when the fatal startup
// precondition fails; otherwise it only returns after shutdown.
func (e *Engine) Run(ctx context.Context) error {
	if !e.hasCreds {
		return ErrMissingCredentials
	}

	e.log.Info().
		Int("networks", len(e.registry.Live())).
		Dur("interval", e.interval).
		Msg("Strike loop started")

	for {
		e.Tick(ctx)

		select {
		case <-ctx.Done():
			e.log.Info().Msg("Strike loop stopped")
			return nil
		case <-time.After(e.interval):
		}
	}
}

// Tick runs one full scheduling round. All attempts for the tick run
// concurrently and the tick waits for every one of them to settle; an
// individual attempt's failure never cancels or blocks its siblings.
func (e *Engine) Tick(ctx context.Context) {
	batch := e.signals.Gather(ctx)
	sessions := e.registry.Live()

	var wg sync.WaitGroup
	attempt := func(session *registry.Session, ticker, source string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.orch.Attempt(ctx, session, ticker, source)
		}()
	}

	if len(batch) == 0 {
		// No external signal this tick: one speculative baseline attempt
		// per network, scored under its own trust bucket.
		for _, session := range sessions {
			attempt(session, "", SourceBaseline)
		}
	} else {
		for _, session := range sessions {
			for _, sig := range batch {
				attempt(session, sig.Ticker, SourceNews)
			}
		}
	}

	wg.Wait()
}
