package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/melanieperez26/unitrack/internal/model"
)

// PushStore persists Web Push subscriptions and their delivery health.
type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const subscriptionCols = `id, user_id, endpoint, p256dh_key, auth_key, device_name, failures, last_delivered_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (model.PushSubscription, error) {
	var (
		sub       model.PushSubscription
		delivered sql.NullTime
	)
	err := row.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey,
		&sub.DeviceName, &sub.Failures, &delivered, &sub.CreatedAt)
	if delivered.Valid {
		sub.LastDeliveredAt = &delivered.Time
	}
	return sub, err
}

// Upsert registers sub for its user. Re-registering an endpoint moves it to
// the new user and keys and clears its failure count.
func (s *PushStore) Upsert(sub model.PushSubscription) (*model.PushSubscription, error) {
	row := s.db.QueryRow(
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh_key, auth_key, device_name)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET
		   user_id = excluded.user_id,
		   p256dh_key = excluded.p256dh_key,
		   auth_key = excluded.auth_key,
		   device_name = excluded.device_name,
		   failures = 0
		 RETURNING `+subscriptionCols,
		sub.UserID, sub.Endpoint, sub.P256dhKey, sub.AuthKey, sub.DeviceName,
	)
	saved, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("upsert push subscription: %w", err)
	}
	return &saved, nil
}

// ForUser lists a user's subscriptions, newest first.
func (s *PushStore) ForUser(userID int64) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+subscriptionCols+` FROM push_subscriptions
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Remove deletes one of userID's subscriptions and reports whether it existed.
func (s *PushStore) Remove(id, userID int64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("remove push subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove push subscription: %w", err)
	}
	return n > 0, nil
}

func (s *PushStore) RemoveEndpoint(endpoint string) error {
	if _, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint); err != nil {
		return fmt.Errorf("remove push endpoint: %w", err)
	}
	return nil
}

func (s *PushStore) MarkDelivered(id int64) error {
	_, err := s.db.Exec(
		`UPDATE push_subscriptions SET failures = 0, last_delivered_at = CURRENT_TIMESTAMP WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("mark push delivered: %w", err)
	}
	return nil
}

// RecordFailure bumps the consecutive failure count and returns it.
// A subscription that no longer exists reports 0.
func (s *PushStore) RecordFailure(id int64) (int, error) {
	var n int
	err := s.db.QueryRow(
		`UPDATE push_subscriptions SET failures = failures + 1 WHERE id = ? RETURNING failures`, id,
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("record push failure: %w", err)
	}
	return n, nil
}
