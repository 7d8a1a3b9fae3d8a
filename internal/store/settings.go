package store

import (
	"database/sql"
	"fmt"
	"time"
)

var themeKeys = []string{
	"dark_theme",
	"dynamic_color",
	"primary_color",
}

var sessionKeys = []string{
	"session_username",
}

// PreferenceStore holds small per-user key/value settings grouped by namespace.
type PreferenceStore struct {
	db *sql.DB
}

func NewPreferenceStore(db *sql.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// Get returns the value of a key and whether it is set.
func (s *PreferenceStore) Get(userID int64, namespace, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM preferences WHERE user_id = ? AND namespace = ? AND key = ?`,
		userID, namespace, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %s/%s: %w", namespace, key, err)
	}
	return value, true, nil
}

func (s *PreferenceStore) GetNamespace(userID int64, namespace string) (map[string]string, error) {
	rows, err := s.db.Query(
		`SELECT key, value FROM preferences WHERE user_id = ? AND namespace = ? ORDER BY key`,
		userID, namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("get preferences %s: %w", namespace, err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs[key] = value
	}
	return prefs, rows.Err()
}

func (s *PreferenceStore) Set(userID int64, namespace, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO preferences (user_id, namespace, key, value, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		userID, namespace, key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set preference %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *PreferenceStore) Delete(userID int64, namespace, key string) error {
	_, err := s.db.Exec(
		`DELETE FROM preferences WHERE user_id = ? AND namespace = ? AND key = ?`,
		userID, namespace, key,
	)
	if err != nil {
		return fmt.Errorf("delete preference %s/%s: %w", namespace, key, err)
	}
	return nil
}

// GetThemeSettings returns the theme keys that are set for a user.
func (s *PreferenceStore) GetThemeSettings(userID int64) (map[string]string, error) {
	return s.getKeys(userID, "theme_prefs", themeKeys)
}

// GetSessionSettings returns the session keys that are set for a user.
func (s *PreferenceStore) GetSessionSettings(userID int64) (map[string]string, error) {
	return s.getKeys(userID, "session_prefs", sessionKeys)
}

func (s *PreferenceStore) getKeys(userID int64, namespace string, keys []string) (map[string]string, error) {
	settings := make(map[string]string)
	for _, key := range keys {
		value, ok, err := s.Get(userID, namespace, key)
		if err != nil {
			return nil, err
		}
		if ok {
			settings[key] = value
		}
	}
	return settings, nil
}
