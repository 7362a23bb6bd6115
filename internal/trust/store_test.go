package trust

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStoreCreatesFreshDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust.db")

	db, repo, err := OpenStore(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	scores, err := repo.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestOpenStorePreservesExistingState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust.db")

	db, repo, err := OpenStore(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, repo.SaveAll(map[string]float64{"news": 0.92}))
	require.NoError(t, db.Close())

	db, repo, err = OpenStore(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	scores, err := repo.LoadAll()
	require.NoError(t, err)
	assert.InDelta(t, 0.92, scores["news"], 1e-9)
}

func TestOpenStoreRecoversFromCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trust.db")
	garbage := []byte("this is not a sqlite database at all, not even close")
	require.NoError(t, os.WriteFile(path, garbage, 0644))

	db, repo, err := OpenStore(path, zerolog.Nop())
	require.NoError(t, err, "file corruption must not fail startup")
	t.Cleanup(func() { _ = db.Close() })

	// The replacement database is usable and the ledger seeds defaults.
	ledger := NewLedger(repo, zerolog.Nop())
	assert.InDelta(t, 0.85, ledger.Get("news"), 1e-9)
	assert.InDelta(t, 0.70, ledger.Get("baseline"), 1e-9)

	// The damaged file was moved aside, not destroyed.
	quarantined, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, quarantined, 1)
	kept, err := os.ReadFile(quarantined[0])
	require.NoError(t, err)
	assert.Equal(t, garbage, kept)
}
