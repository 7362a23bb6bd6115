package trust

import (
	"math"
	"sync"

	"github.com/rs/zerolog"
)

// Score bounds and update factors. A successful outcome compounds the
// source's score by 5%, a failed one decays it by 10%; the asymmetry makes
// a source lose trust faster than it earns it.
const (
	MinScore     = 0.1
	MaxScore     = 0.99
	DefaultScore = 0.5

	successFactor = 1.05
	failureFactor = 0.90
)

// seedScores is the default map used when no prior state exists or the
// stored state is unreadable.
func seedScores() map[string]float64 {
	return map[string]float64{
		"news":     0.85,
		"baseline": 0.70,
	}
}

// Ledger owns the trust score map. All access goes through Get/Update;
// the read-modify-write-persist cycle of Update is serialized by a single
// mutex, so concurrent outcome reports never lose updates.
type Ledger struct {
	mu     sync.Mutex
	scores map[string]float64
	repo   *Repository
	log    zerolog.Logger
}

// NewLedger loads the score map from the repository. Missing or corrupt
// state falls back to seed defaults; startup never fails on bad trust data.
func NewLedger(repo *Repository, log zerolog.Logger) *Ledger {
	l := &Ledger{
		repo: repo,
		log:  log.With().Str("component", "trust_ledger").Logger(),
	}

	scores, err := repo.LoadAll()
	if err != nil {
		l.log.Warn().Err(err).Msg("Trust state unreadable, falling back to seed defaults")
		scores = seedScores()
	} else if len(scores) == 0 {
		l.log.Info().Msg("No prior trust state, seeding defaults")
		scores = seedScores()
	}
	l.scores = scores

	// Persist the seeds so the next start reads the same state. Best
	// effort: a write failure here is logged, not fatal.
	if err := repo.SaveAll(scores); err != nil {
		l.log.Error().Err(err).Msg("Failed to persist initial trust state")
	}

	return l
}

// Get returns the current score for a source, defaulting to 0.5 for
// sources never seen before. Get never mutates the map.
func (l *Ledger) Get(source string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if score, ok := l.scores[source]; ok {
		return score
	}
	return DefaultScore
}

// Update applies one observed outcome to a source's score and writes the
// full map through to durable storage before returning. The new score is
// returned for logging.
func (l *Ledger) Update(source string, success bool) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	old, ok := l.scores[source]
	if !ok {
		old = DefaultScore
	}

	var next float64
	if success {
		next = math.Min(MaxScore, old*successFactor)
	} else {
		next = math.Max(MinScore, old*failureFactor)
	}
	l.scores[source] = next

	if err := l.repo.SaveAll(l.scores); err != nil {
		l.log.Error().Err(err).Str("source", source).Msg("Failed to persist trust update")
	}

	l.log.Debug().
		Str("source", source).
		Bool("success", success).
		Float64("old", old).
		Float64("new", next).
		Msg("Trust score updated")

	return next
}

// Snapshot returns a copy of the current score map for read-only display.
func (l *Ledger) Snapshot() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]float64, len(l.scores))
	for k, v := range l.scores {
		out[k] = v
	}
	return out
}
