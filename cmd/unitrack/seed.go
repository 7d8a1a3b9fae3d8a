package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/melanieperez26/unitrack/internal/backend"
	"github.com/melanieperez26/unitrack/internal/database"
	"github.com/melanieperez26/unitrack/internal/model"
	"github.com/melanieperez26/unitrack/internal/store"
)

var (
	seedEmail    string
	seedPassword string
	seedName     string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo account with a sample task and exam",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		profiles := store.NewProfileStore(db)
		accounts := backend.NewLocalAuth(store.NewUserStore(db), store.NewSessionStore(db, cfg.Session.TTL), profiles)
		docs := backend.NewLocalDocuments(profiles, store.NewTaskStore(db), store.NewExamStore(db))

		loc, _ := cfg.Location()
		userID, err := seedSample(cmd.Context(), accounts, docs, time.Now().In(loc))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded user %d (%s)\n", userID, seedEmail)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedEmail, "email", "demo@unitrack.app", "account email")
	seedCmd.Flags().StringVar(&seedPassword, "password", "unitrack", "account password")
	seedCmd.Flags().StringVar(&seedName, "name", "Demo Student", "display name")
}

// seedSample signs the demo account up, or in when it already exists, and
// adds one task due next week and one exam the week after.
func seedSample(ctx context.Context, accounts backend.AuthProvider, docs backend.DocumentStore, now time.Time) (int64, error) {
	acct, err := accounts.SignUp(ctx, seedEmail, seedPassword, seedName)
	if errors.Is(err, backend.ErrEmailTaken) {
		acct, err = accounts.SignIn(ctx, seedEmail, seedPassword)
	}
	if err != nil {
		return 0, fmt.Errorf("demo account: %w", err)
	}
	uid := acct.User.ID

	if _, err := docs.SetProfile(ctx, model.Profile{UserID: uid, Email: acct.User.Email, DisplayName: seedName}); err != nil {
		return 0, fmt.Errorf("seed profile: %w", err)
	}
	if _, err := docs.AddTask(ctx, model.Task{
		UserID:      uid,
		Title:       "Sample task",
		Description: "A task created by unitrack seed",
		Due:         now.AddDate(0, 0, 7).Format(model.DateLayout),
		Priority:    model.PriorityNormal,
		Repeat:      model.RepeatNone,
	}); err != nil {
		return 0, fmt.Errorf("seed task: %w", err)
	}
	if _, err := docs.AddExam(ctx, model.Exam{
		UserID:  uid,
		Subject: "Mathematics",
		Date:    now.AddDate(0, 0, 14).Format(model.DateLayout),
	}); err != nil {
		return 0, fmt.Errorf("seed exam: %w", err)
	}
	return uid, nil
}
