package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/melanieperez26/unitrack/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userCols = `id, email, password_hash, created_at, updated_at`

func (s *UserStore) get(where string, arg any) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) Create(email, passwordHash string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(
		`INSERT INTO users (email, password_hash) VALUES (?, ?) RETURNING `+userCols,
		email, passwordHash,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	u, err := s.get(`id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByEmail matches case-insensitively; the column is COLLATE NOCASE.
func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	u, err := s.get(`email = ?`, email)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) UpdatePassword(id int64, passwordHash string) error {
	if _, err := s.db.Exec(`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Delete removes the user and everything keyed by it. Sessions, profile,
// documents and push subscriptions cascade; preferences, tray entries and
// pending alarms carry no foreign key and are removed here.
func (s *UserStore) Delete(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM alarms WHERE owner_user_id = ?`,
		`DELETE FROM notifications WHERE user_id = ?`,
		`DELETE FROM preferences WHERE user_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}
	return nil
}
