// Package backup takes encrypted snapshots of the SQLite database and
// stores them through the blob store.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/melanieperez26/unitrack/internal/backend"
)

var ErrNoPassphrase = errors.New("backup passphrase is required")

// ObjectKey is where a backup taken at t is stored.
func ObjectKey(t time.Time) string {
	return fmt.Sprintf("backups/unitrack-%s.db.enc", t.UTC().Format("2006-01-02T150405Z"))
}

// Snapshot writes a consistent copy of db into dir and returns its path.
func Snapshot(ctx context.Context, db *sql.DB, dir string) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("unitrack-snapshot-%d.db", time.Now().UnixNano()))
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return "", fmt.Errorf("vacuum into: %w", err)
	}
	return path, nil
}

// Run snapshots db, encrypts the snapshot and uploads it. It returns the
// object key and the URL reported by the blob store.
func Run(ctx context.Context, db *sql.DB, blobs backend.BlobStore, passphrase string, logger *slog.Logger) (key, url string, err error) {
	if passphrase == "" {
		return "", "", ErrNoPassphrase
	}

	tmpDir, err := os.MkdirTemp("", "unitrack-backup-")
	if err != nil {
		return "", "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	start := time.Now()
	snap, err := Snapshot(ctx, db, tmpDir)
	if err != nil {
		return "", "", err
	}
	plaintext, err := os.ReadFile(snap)
	if err != nil {
		return "", "", fmt.Errorf("read snapshot: %w", err)
	}

	sealed, err := Seal(plaintext, passphrase)
	if err != nil {
		return "", "", err
	}

	key = ObjectKey(start)
	url, err = blobs.Upload(ctx, key, "application/octet-stream", bytes.NewReader(sealed), int64(len(sealed)))
	if err != nil {
		return "", "", fmt.Errorf("upload backup: %w", err)
	}

	logger.Info("backup uploaded", "key", key, "bytes", len(sealed), "duration", time.Since(start))
	return key, url, nil
}

// RestoreFile decrypts the backup at encPath into dbPath. dbPath must not
// exist yet; stale WAL and SHM files next to it are removed.
func RestoreFile(encPath, dbPath, passphrase string) error {
	if passphrase == "" {
		return ErrNoPassphrase
	}
	if _, err := os.Stat(dbPath); err == nil {
		return fmt.Errorf("restore target %s already exists", dbPath)
	}

	data, err := os.ReadFile(encPath)
	if err != nil {
		return fmt.Errorf("read encrypted file: %w", err)
	}
	plaintext, err := Open(data, passphrase)
	if err != nil {
		return err
	}

	os.Remove(dbPath + "-wal")
	os.Remove(dbPath + "-shm")
	if err := os.WriteFile(dbPath, plaintext, 0o600); err != nil {
		return fmt.Errorf("write restored database: %w", err)
	}
	return nil
}
