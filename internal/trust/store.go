package trust

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/harrier/internal/database"
)

// OpenStore opens the trust database and prepares its schema. Bad trust
// state must never halt startup: when the file itself is unusable (not a
// database, truncated, schema unreadable), the damaged file is quarantined
// and a fresh database is created at the same path, leaving the ledger to
// seed its defaults. Only an unusable data directory surfaces as an error.
func OpenStore(path string, log zerolog.Logger) (*database.DB, *Repository, error) {
	db, repo, err := openStore(path, log)
	if err == nil {
		return db, repo, nil
	}

	quarantined, qerr := database.Quarantine(path)
	if qerr != nil {
		return nil, nil, fmt.Errorf("trust database unusable and could not be quarantined: %w (open error: %v)", qerr, err)
	}
	log.Warn().
		Err(err).
		Str("quarantined", quarantined).
		Msg("Trust database unusable, quarantined and starting fresh")

	return openStore(path, log)
}

func openStore(path string, log zerolog.Logger) (*database.DB, *Repository, error) {
	db, err := database.New(database.Config{
		Path:    path,
		Profile: database.ProfileLedger,
		Name:    "trust",
	})
	if err != nil {
		return nil, nil, err
	}

	repo := NewRepository(db.Conn(), log)
	if err := repo.EnsureSchema(); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return db, repo, nil
}
