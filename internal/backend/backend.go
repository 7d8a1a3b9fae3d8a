// Package backend defines the remote capabilities the app depends on
// (accounts, documents and blobs) and their SQLite and S3 implementations.
package backend

import (
	"context"
	"errors"
	"io"

	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/model"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = auth.ErrWeakPassword
	ErrNotFound           = errors.New("document not found")
	ErrBlobsDisabled      = errors.New("blob storage not configured")
)

// Account is a signed-in user together with the session that proves it.
type Account struct {
	User    *model.User    `json:"user"`
	Session *model.Session `json:"-"`
}

type AuthProvider interface {
	SignUp(ctx context.Context, email, password, displayName string) (*Account, error)
	SignIn(ctx context.Context, email, password string) (*Account, error)
	// CurrentUser returns the user in ctx, or nil when nobody is signed in.
	CurrentUser(ctx context.Context) (*model.User, error)
	SignOut(ctx context.Context, token string) error
	// ChangePassword revokes every session of the user in ctx and returns a
	// fresh one.
	ChangePassword(ctx context.Context, current, next string) (*Account, error)
	DeleteAccount(ctx context.Context, password string) error
}

// DocumentStore holds per-user documents. Lookups of missing documents
// return ErrNotFound.
type DocumentStore interface {
	GetProfile(ctx context.Context, userID int64) (*model.Profile, error)
	SetProfile(ctx context.Context, p model.Profile) (*model.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, displayName, photoURL *string) (*model.Profile, error)

	ListTasks(ctx context.Context, userID int64) ([]model.Task, error)
	GetTask(ctx context.Context, userID, id int64) (*model.Task, error)
	AddTask(ctx context.Context, t model.Task) (*model.Task, error)
	UpdateTask(ctx context.Context, t model.Task) (*model.Task, error)
	SetTaskReminder(ctx context.Context, userID, id int64, reminderID int32) error
	DeleteTask(ctx context.Context, userID, id int64) error

	ListExams(ctx context.Context, userID int64) ([]model.Exam, error)
	GetExam(ctx context.Context, userID, id int64) (*model.Exam, error)
	AddExam(ctx context.Context, e model.Exam) (*model.Exam, error)
	UpdateExam(ctx context.Context, e model.Exam) (*model.Exam, error)
	SetExamReminder(ctx context.Context, userID, id int64, reminderID int32) error
	DeleteExam(ctx context.Context, userID, id int64) error
}

// BlobStore keeps uploaded files and returns a public URL for each.
type BlobStore interface {
	Upload(ctx context.Context, path, contentType string, r io.Reader, size int64) (string, error)
}
