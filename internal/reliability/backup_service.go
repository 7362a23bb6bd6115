package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/harrier/internal/database"
	"github.com/aristath/harrier/internal/version"
)

const (
	backupPrefix = "backups/"
	// retainedBackups is how many archives survive pruning.
	retainedBackups = 14
)

// BackupMetadata describes one backup archive.
type BackupMetadata struct {
	Timestamp      time.Time `json:"timestamp"`
	HarrierVersion string    `json:"harrier_version"`
	Database       string    `json:"database"`
	SizeBytes      int64     `json:"size_bytes"`
	Checksum       string    `json:"checksum"`
}

// BackupService snapshots the trust database and ships it off-site.
type BackupService struct {
	trustDB *database.DB
	r2      *R2Client
	dataDir string
	log     zerolog.Logger
}

// NewBackupService creates the backup service.
func NewBackupService(trustDB *database.DB, r2 *R2Client, dataDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		trustDB: trustDB,
		r2:      r2,
		dataDir: dataDir,
		log:     log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUploadBackup snapshots trust.db, archives it with metadata,
// uploads the archive, and prunes old copies.
func (s *BackupService) CreateAndUploadBackup(ctx context.Context) error {
	start := time.Now()

	stagingDir := filepath.Join(s.dataDir, "backup-staging")
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	snapshotPath := filepath.Join(stagingDir, "trust.db")
	if err := s.trustDB.BackupTo(snapshotPath); err != nil {
		return fmt.Errorf("failed to snapshot trust database: %w", err)
	}

	info, err := os.Stat(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to stat snapshot: %w", err)
	}
	checksum, err := fileChecksum(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to checksum snapshot: %w", err)
	}

	metadata := BackupMetadata{
		Timestamp:      time.Now().UTC(),
		HarrierVersion: version.Version,
		Database:       "trust",
		SizeBytes:      info.Size(),
		Checksum:       checksum,
	}
	metadataPath := filepath.Join(stagingDir, "backup-metadata.json")
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	archiveName := fmt.Sprintf("harrier-backup-%s.tar.gz", time.Now().UTC().Format("2006-01-02-150405"))
	archivePath := filepath.Join(stagingDir, archiveName)
	if err := createArchive(archivePath, snapshotPath, metadataPath); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	key := backupPrefix + archiveName
	if err := s.r2.Upload(ctx, key, archive); err != nil {
		return err
	}

	s.log.Info().
		Str("key", key).
		Int64("db_bytes", info.Size()).
		Dur("elapsed", time.Since(start)).
		Msg("Backup uploaded")

	return s.pruneOldBackups(ctx)
}

// pruneOldBackups removes everything beyond the retention count.
func (s *BackupService) pruneOldBackups(ctx context.Context) error {
	keys, err := s.r2.ListKeys(ctx, backupPrefix)
	if err != nil {
		return err
	}
	if len(keys) <= retainedBackups {
		return nil
	}

	for _, key := range keys[:len(keys)-retainedBackups] {
		if err := s.r2.Delete(ctx, key); err != nil {
			// Pruning is best effort; the next run retries.
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to prune backup")
			continue
		}
		s.log.Debug().Str("key", key).Msg("Pruned old backup")
	}

	return nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// createArchive writes a tar.gz holding the given files at their base names.
func createArchive(archivePath string, files ...string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()

	tw := tar.NewWriter(gz)
	defer tw.Close()

	for _, file := range files {
		if err := addToArchive(tw, file); err != nil {
			return err
		}
	}
	return nil
}

func addToArchive(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
