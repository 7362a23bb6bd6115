package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpensAndPassesHealthCheck(t *testing.T) {
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "trust.db"),
		Profile: ProfileLedger,
		Name:    "trust",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.Equal(t, "trust", db.Name())
}

func TestNewRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust.db")
	require.NoError(t, os.WriteFile(path, []byte("garbage, not sqlite"), 0644))

	_, err := New(Config{Path: path, Profile: ProfileLedger, Name: "trust"})
	assert.Error(t, err)
}

func TestQuarantineMovesFileAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trust.db")
	require.NoError(t, os.WriteFile(path, []byte("damaged"), 0644))
	require.NoError(t, os.WriteFile(path+"-wal", []byte("wal"), 0644))

	dest, err := Quarantine(path)
	require.NoError(t, err)

	assert.NoFileExists(t, path)
	assert.NoFileExists(t, path+"-wal")
	assert.FileExists(t, dest)
	assert.FileExists(t, dest+"-wal")
}

func TestQuarantineFailsWhenNothingToMove(t *testing.T) {
	_, err := Quarantine(filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}
