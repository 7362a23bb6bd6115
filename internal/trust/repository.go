// Package trust implements the persisted trust ledger: a learned
// reliability weight per signal source, updated from observed strike
// outcomes and gating every execution attempt.
package trust

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles trust score persistence in trust.db.
// Scores are stored one row per source and always written as a full map,
// so the durable copy is never a partial view of the in-memory state.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new trust score repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "trust").Logger(),
	}
}

// EnsureSchema creates the trust_scores table if it does not exist.
func (r *Repository) EnsureSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS trust_scores (
			source     TEXT PRIMARY KEY,
			score      REAL NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create trust_scores table: %w", err)
	}
	return nil
}

// LoadAll reads the full score map. A row holding a value outside the
// valid score range (or NaN) marks the stored state as corrupt; callers
// fall back to seed defaults rather than failing startup.
func (r *Repository) LoadAll() (map[string]float64, error) {
	rows, err := r.db.Query("SELECT source, score FROM trust_scores")
	if err != nil {
		return nil, fmt.Errorf("failed to query trust scores: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]float64)
	for rows.Next() {
		var source string
		var score float64
		if err := rows.Scan(&source, &score); err != nil {
			return nil, fmt.Errorf("failed to scan trust score row: %w", err)
		}
		if math.IsNaN(score) || score < MinScore || score > MaxScore {
			return nil, fmt.Errorf("corrupt trust score for %s: %v", source, score)
		}
		scores[source] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trust scores: %w", err)
	}

	return scores, nil
}

// SaveAll writes the full score map back in a single transaction.
func (r *Repository) SaveAll(scores map[string]float64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin trust save transaction: %w", err)
	}

	now := time.Now().Unix()
	for source, score := range scores {
		_, err := tx.Exec(`
			INSERT INTO trust_scores (source, score, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(source) DO UPDATE SET
				score = excluded.score,
				updated_at = excluded.updated_at
		`, source, score, now)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to save trust score for %s: %w", source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trust save transaction: %w", err)
	}
	return nil
}
