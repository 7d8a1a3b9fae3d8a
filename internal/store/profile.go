package store

import (
	"database/sql"
	"fmt"

	"github.com/melanieperez26/unitrack/internal/model"
)

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

const profileCols = `user_id, email, display_name, photo_url, created_at, updated_at`

func scanProfile(scanner interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	err := scanner.Scan(&p.UserID, &p.Email, &p.DisplayName, &p.PhotoURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProfileStore) Get(userID int64) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE user_id = ?`, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Set writes the whole profile document, creating it if needed.
func (s *ProfileStore) Set(userID int64, email, displayName, photoURL string) (*model.Profile, error) {
	_, err := s.db.Exec(
		`INSERT INTO profiles (user_id, email, display_name, photo_url) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET email = excluded.email, display_name = excluded.display_name, photo_url = excluded.photo_url`,
		userID, email, displayName, photoURL,
	)
	if err != nil {
		return nil, fmt.Errorf("set profile: %w", err)
	}
	return s.Get(userID)
}

// Ensure creates the profile document if it does not exist. An existing
// document is left untouched.
func (s *ProfileStore) Ensure(userID int64, email, displayName string) (*model.Profile, error) {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO profiles (user_id, email, display_name) VALUES (?, ?, ?)`,
		userID, email, displayName,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	return s.Get(userID)
}

// Update changes the fields that are non-nil.
func (s *ProfileStore) Update(userID int64, displayName, photoURL *string) (*model.Profile, error) {
	current, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	name := current.DisplayName
	if displayName != nil {
		name = *displayName
	}
	photo := current.PhotoURL
	if photoURL != nil {
		photo = *photoURL
	}

	_, err = s.db.Exec(
		`UPDATE profiles SET display_name = ?, photo_url = ? WHERE user_id = ?`,
		name, photo, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.Get(userID)
}

func (s *ProfileStore) Delete(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM profiles WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
