package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melanieperez26/unitrack/internal/database"
	"github.com/melanieperez26/unitrack/internal/push"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and print the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		v, err := database.Version(db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", cfg.Database.Path, v)
		return nil
	},
}

var vapidKeysCmd = &cobra.Command{
	Use:   "vapid-keys",
	Short: "Generate a VAPID key pair for Web Push",
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "push:")
		fmt.Fprintf(out, "  vapid_public_key: %q\n", pub)
		fmt.Fprintf(out, "  vapid_private_key: %q\n", priv)
		return nil
	},
}
