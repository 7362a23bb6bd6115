package trust

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/harrier/internal/database"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "trust.db"),
		Profile: database.ProfileLedger,
		Name:    "trust",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, repo.EnsureSchema())
	return repo
}

func TestSaveAllLoadAll(t *testing.T) {
	repo := newTestRepo(t)

	in := map[string]float64{"news": 0.85, "baseline": 0.70, "x": 0.5}
	require.NoError(t, repo.SaveAll(in))

	out, err := repo.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSaveAllOverwrites(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.SaveAll(map[string]float64{"news": 0.85}))
	require.NoError(t, repo.SaveAll(map[string]float64{"news": 0.45}))

	out, err := repo.LoadAll()
	require.NoError(t, err)
	assert.InDelta(t, 0.45, out["news"], 1e-9)
}

func TestLoadAllEmpty(t *testing.T) {
	repo := newTestRepo(t)

	out, err := repo.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLoadAllRejectsOutOfRangeScores(t *testing.T) {
	repo := newTestRepo(t)

	// Write a value outside the valid range directly, bypassing the ledger.
	_, err := repo.db.Exec(
		"INSERT INTO trust_scores (source, score, updated_at) VALUES (?, ?, 0)",
		"bad", 7.5,
	)
	require.NoError(t, err)

	_, err = repo.LoadAll()
	assert.Error(t, err)
}
