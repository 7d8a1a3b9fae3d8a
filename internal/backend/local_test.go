package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/database"
	"github.com/melanieperez26/unitrack/internal/model"
	"github.com/melanieperez26/unitrack/internal/store"
)

func setupLocal(t *testing.T) (*LocalAuth, *LocalDocuments) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	profiles := store.NewProfileStore(db)
	a := NewLocalAuth(store.NewUserStore(db), store.NewSessionStore(db, time.Hour), profiles)
	d := NewLocalDocuments(profiles, store.NewTaskStore(db), store.NewExamStore(db))
	return a, d
}

func TestSignUpAndSignIn(t *testing.T) {
	a, d := setupLocal(t)
	ctx := context.Background()

	acct, err := a.SignUp(ctx, " Ana@Example.com ", "secret1", "")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if acct.User.Email != "ana@example.com" {
		t.Errorf("email = %q, want normalized", acct.User.Email)
	}
	if acct.Session == nil || acct.Session.Token == "" {
		t.Fatal("expected a session")
	}

	profile, err := d.GetProfile(ctx, acct.User.ID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.DisplayName != "ana" {
		t.Errorf("display_name = %q, want %q", profile.DisplayName, "ana")
	}

	signedIn, err := a.SignIn(ctx, "ANA@example.com", "secret1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if signedIn.User.ID != acct.User.ID {
		t.Errorf("user id = %d, want %d", signedIn.User.ID, acct.User.ID)
	}
	if signedIn.Session.Token == acct.Session.Token {
		t.Error("expected a fresh session token")
	}

	userCtx := auth.ForUser(ctx, acct.User.ID)
	cur, err := a.CurrentUser(userCtx)
	if err != nil || cur == nil || cur.ID != acct.User.ID {
		t.Errorf("current user = %v, %v", cur, err)
	}
	cur, _ = a.CurrentUser(ctx)
	if cur != nil {
		t.Error("expected no current user without auth")
	}

	if err := a.SignOut(ctx, signedIn.Session.Token); err != nil {
		t.Fatalf("sign out: %v", err)
	}
}

func TestSignUpErrors(t *testing.T) {
	a, _ := setupLocal(t)
	ctx := context.Background()

	if _, err := a.SignUp(ctx, "ana@example.com", "secret1", "Ana"); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	tests := []struct {
		email, password string
		want            error
	}{
		{"ana@example.com", "secret2", ErrEmailTaken},
		{"bob@example.com", "123", ErrWeakPassword},
		{"not-an-email", "secret1", ErrInvalidEmail},
	}
	for _, tt := range tests {
		if _, err := a.SignUp(ctx, tt.email, tt.password, ""); !errors.Is(err, tt.want) {
			t.Errorf("SignUp(%q, %q) = %v, want %v", tt.email, tt.password, err, tt.want)
		}
	}
}

func TestSignInInvalid(t *testing.T) {
	a, _ := setupLocal(t)
	ctx := context.Background()
	a.SignUp(ctx, "ana@example.com", "secret1", "Ana")

	if _, err := a.SignIn(ctx, "ana@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := a.SignIn(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user = %v, want ErrInvalidCredentials", err)
	}
}

func TestDocumentsNotFound(t *testing.T) {
	a, d := setupLocal(t)
	ctx := context.Background()
	acct, _ := a.SignUp(ctx, "ana@example.com", "secret1", "Ana")
	uid := acct.User.ID

	if _, err := d.GetTask(ctx, uid, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("get task = %v, want ErrNotFound", err)
	}
	if _, err := d.UpdateExam(ctx, model.Exam{ID: 99, UserID: uid, Subject: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update exam = %v, want ErrNotFound", err)
	}
	if _, err := d.GetProfile(ctx, uid+1); !errors.Is(err, ErrNotFound) {
		t.Errorf("get profile = %v, want ErrNotFound", err)
	}

	task, err := d.AddTask(ctx, model.Task{UserID: uid, Title: "Essay"})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if err := d.SetTaskReminder(ctx, uid, task.ID, 3); err != nil {
		t.Fatalf("set reminder: %v", err)
	}
	got, err := d.GetTask(ctx, uid, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.ReminderID != 3 {
		t.Errorf("reminder_id = %d, want 3", got.ReminderID)
	}
}

func TestSignInEnsuresProfile(t *testing.T) {
	a, d := setupLocal(t)
	ctx := context.Background()

	acct, err := a.SignUp(ctx, "ana@example.com", "secret1", "Ana")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if err := a.profiles.Delete(acct.User.ID); err != nil {
		t.Fatalf("delete profile: %v", err)
	}

	if _, err := a.SignIn(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	p, err := d.GetProfile(ctx, acct.User.ID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.DisplayName != "ana" || p.Email != "ana@example.com" {
		t.Errorf("profile = %+v", p)
	}

	// an existing profile is left alone
	if _, err := d.SetProfile(ctx, model.Profile{UserID: acct.User.ID, Email: "ana@example.com", DisplayName: "Ana P"}); err != nil {
		t.Fatalf("set profile: %v", err)
	}
	a.SignIn(ctx, "ana@example.com", "secret1")
	p, _ = d.GetProfile(ctx, acct.User.ID)
	if p.DisplayName != "Ana P" {
		t.Errorf("display_name = %q, want %q", p.DisplayName, "Ana P")
	}
}

func TestChangePassword(t *testing.T) {
	a, _ := setupLocal(t)
	ctx := context.Background()

	acct, _ := a.SignUp(ctx, "ana@example.com", "secret1", "")
	userCtx := auth.ForUser(ctx, acct.User.ID)

	if _, err := a.ChangePassword(userCtx, "wrong!", "secret2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong current password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := a.ChangePassword(userCtx, "secret1", "123"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password err = %v, want ErrWeakPassword", err)
	}

	changed, err := a.ChangePassword(userCtx, "secret1", "secret2")
	if err != nil {
		t.Fatalf("change password: %v", err)
	}
	if changed.Session.Token == acct.Session.Token {
		t.Error("expected a new session")
	}
	if old, _ := a.sessions.GetByToken(acct.Session.Token); old != nil {
		t.Error("old session should be revoked")
	}

	if _, err := a.SignIn(ctx, "ana@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := a.SignIn(ctx, "ana@example.com", "secret2"); err != nil {
		t.Errorf("new password: %v", err)
	}
}

func TestDeleteAccount(t *testing.T) {
	a, d := setupLocal(t)
	ctx := context.Background()

	acct, _ := a.SignUp(ctx, "ana@example.com", "secret1", "")
	userCtx := auth.ForUser(ctx, acct.User.ID)
	if _, err := d.AddTask(ctx, model.Task{UserID: acct.User.ID, Title: "Essay"}); err != nil {
		t.Fatalf("add task: %v", err)
	}

	if err := a.DeleteAccount(userCtx, "wrong!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if err := a.DeleteAccount(userCtx, "secret1"); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	if _, err := d.GetProfile(ctx, acct.User.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("profile err = %v, want ErrNotFound", err)
	}
	if tasks, _ := d.ListTasks(ctx, acct.User.ID); len(tasks) != 0 {
		t.Errorf("tasks = %d, want 0", len(tasks))
	}
	if _, err := a.SignIn(ctx, "ana@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("sign in after delete err = %v, want ErrInvalidCredentials", err)
	}
	if err := a.DeleteAccount(userCtx, "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("second delete err = %v, want ErrInvalidCredentials", err)
	}
}
