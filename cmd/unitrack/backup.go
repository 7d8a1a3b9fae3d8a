package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melanieperez26/unitrack/internal/backend"
	"github.com/melanieperez26/unitrack/internal/backup"
	"github.com/melanieperez26/unitrack/internal/database"
	"github.com/melanieperez26/unitrack/internal/server"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Upload an encrypted snapshot of the database to S3",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.S3.Enabled() {
			return fmt.Errorf("backup needs s3.bucket: %w", backend.ErrBlobsDisabled)
		}
		db, err := database.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		key, url, err := backup.Run(cmd.Context(), db, server.BlobStore(cfg.S3), cfg.Backup.Passphrase, logger.With("component", "backup"))
		if errors.Is(err, backup.ErrNoPassphrase) {
			return fmt.Errorf("set backup.passphrase or UNITRACK_BACKUP_PASSPHRASE: %w", err)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n%s\n", key, url)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file> <database-path>",
	Short: "Decrypt a downloaded backup into a new database file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := backup.RestoreFile(args[0], args[1], cfg.Backup.Passphrase); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", args[1])
		return nil
	},
}
