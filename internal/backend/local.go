package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/model"
	"github.com/melanieperez26/unitrack/internal/store"
)

// LocalAuth authenticates against the users table with bcrypt hashes and
// issues database-backed session tokens.
type LocalAuth struct {
	users    *store.UserStore
	sessions *store.SessionStore
	profiles *store.ProfileStore
}

func NewLocalAuth(users *store.UserStore, sessions *store.SessionStore, profiles *store.ProfileStore) *LocalAuth {
	return &LocalAuth{users: users, sessions: sessions, profiles: profiles}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates the user, its profile document and a first session.
func (a *LocalAuth) SignUp(ctx context.Context, email, password, displayName string) (*Account, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}

	existing, err := a.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := a.users.Create(email, hash)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}
	if _, err := a.profiles.Ensure(user.ID, email, displayName); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	sess, err := a.sessions.Create(user.ID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Account{User: user, Session: sess}, nil
}

func (a *LocalAuth) SignIn(ctx context.Context, email, password string) (*Account, error) {
	user, err := a.users.GetByEmail(normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// Accounts created before profiles existed get one on first sign-in.
	name, _, _ := strings.Cut(user.Email, "@")
	if _, err := a.profiles.Ensure(user.ID, user.Email, name); err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}

	sess, err := a.sessions.Create(user.ID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Account{User: user, Session: sess}, nil
}

// verify loads the user in ctx and checks password against it.
func (a *LocalAuth) verify(ctx context.Context, password string) (*model.User, error) {
	user, err := a.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}

func (a *LocalAuth) ChangePassword(ctx context.Context, current, next string) (*Account, error) {
	user, err := a.verify(ctx, current)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return nil, err
	}
	if err := a.users.UpdatePassword(user.ID, hash); err != nil {
		return nil, err
	}
	if err := a.sessions.DeleteByUser(user.ID); err != nil {
		return nil, err
	}

	sess, err := a.sessions.Create(user.ID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	user.PasswordHash = hash
	return &Account{User: user, Session: sess}, nil
}

// DeleteAccount removes the profile document, then the user with all of its
// data.
func (a *LocalAuth) DeleteAccount(ctx context.Context, password string) error {
	user, err := a.verify(ctx, password)
	if err != nil {
		return err
	}
	if err := a.profiles.Delete(user.ID); err != nil {
		return err
	}
	return a.users.Delete(user.ID)
}

func (a *LocalAuth) CurrentUser(ctx context.Context) (*model.User, error) {
	userID := auth.UserID(ctx)
	if userID == 0 {
		return nil, nil
	}
	return a.users.GetByID(userID)
}

func (a *LocalAuth) SignOut(ctx context.Context, token string) error {
	return a.sessions.Delete(token)
}

// LocalDocuments serves documents from the SQLite stores.
type LocalDocuments struct {
	profiles *store.ProfileStore
	tasks    *store.TaskStore
	exams    *store.ExamStore
}

func NewLocalDocuments(profiles *store.ProfileStore, tasks *store.TaskStore, exams *store.ExamStore) *LocalDocuments {
	return &LocalDocuments{profiles: profiles, tasks: tasks, exams: exams}
}

func found[T any](v *T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}

func (d *LocalDocuments) GetProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	return found(d.profiles.Get(userID))
}

func (d *LocalDocuments) SetProfile(ctx context.Context, p model.Profile) (*model.Profile, error) {
	return found(d.profiles.Set(p.UserID, p.Email, p.DisplayName, p.PhotoURL))
}

func (d *LocalDocuments) UpdateProfile(ctx context.Context, userID int64, displayName, photoURL *string) (*model.Profile, error) {
	return found(d.profiles.Update(userID, displayName, photoURL))
}

func (d *LocalDocuments) ListTasks(ctx context.Context, userID int64) ([]model.Task, error) {
	return d.tasks.ListByUser(userID)
}

func (d *LocalDocuments) GetTask(ctx context.Context, userID, id int64) (*model.Task, error) {
	return found(d.tasks.GetByID(userID, id))
}

func (d *LocalDocuments) AddTask(ctx context.Context, t model.Task) (*model.Task, error) {
	return d.tasks.Create(t)
}

func (d *LocalDocuments) UpdateTask(ctx context.Context, t model.Task) (*model.Task, error) {
	return found(d.tasks.Update(t))
}

func (d *LocalDocuments) SetTaskReminder(ctx context.Context, userID, id int64, reminderID int32) error {
	return d.tasks.SetReminderID(userID, id, reminderID)
}

func (d *LocalDocuments) DeleteTask(ctx context.Context, userID, id int64) error {
	return d.tasks.Delete(userID, id)
}

func (d *LocalDocuments) ListExams(ctx context.Context, userID int64) ([]model.Exam, error) {
	return d.exams.ListByUser(userID)
}

func (d *LocalDocuments) GetExam(ctx context.Context, userID, id int64) (*model.Exam, error) {
	return found(d.exams.GetByID(userID, id))
}

func (d *LocalDocuments) AddExam(ctx context.Context, e model.Exam) (*model.Exam, error) {
	return d.exams.Create(e)
}

func (d *LocalDocuments) UpdateExam(ctx context.Context, e model.Exam) (*model.Exam, error) {
	return found(d.exams.Update(e))
}

func (d *LocalDocuments) SetExamReminder(ctx context.Context, userID, id int64, reminderID int32) error {
	return d.exams.SetReminderID(userID, id, reminderID)
}

func (d *LocalDocuments) DeleteExam(ctx context.Context, userID, id int64) error {
	return d.exams.Delete(userID, id)
}
