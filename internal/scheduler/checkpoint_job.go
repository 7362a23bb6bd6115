package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/harrier/internal/database"
)

// WALCheckpointJob truncates the trust database's WAL file so the
// write-per-outcome pattern of the trust ledger cannot grow it unbounded.
type WALCheckpointJob struct {
	trustDB *database.DB
	log     zerolog.Logger
}

// NewWALCheckpointJob creates the checkpoint job.
func NewWALCheckpointJob(trustDB *database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		trustDB: trustDB,
		log:     log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run executes the checkpoint
func (j *WALCheckpointJob) Run() error {
	if err := j.trustDB.WALCheckpoint("TRUNCATE"); err != nil {
		return err
	}
	j.log.Debug().Str("database", j.trustDB.Name()).Msg("WAL checkpoint complete")
	return nil
}
