package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/melanieperez26/unitrack/internal/model"
)

// NotificationStore holds notification channels and each user's tray.
type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// CreateChannel inserts a channel if no channel with the same id exists.
// It reports whether a new channel was created.
func (s *NotificationStore) CreateChannel(id, name, description string, importance int) (bool, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO notification_channels (id, name, description, importance) VALUES (?, ?, ?, ?)`,
		id, name, description, importance,
	)
	if err != nil {
		return false, fmt.Errorf("create notification channel: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *NotificationStore) GetChannel(id string) (*model.NotificationChannel, error) {
	var c model.NotificationChannel
	err := s.db.QueryRow(
		`SELECT id, name, description, importance, created_at FROM notification_channels WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.Importance, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification channel: %w", err)
	}
	return &c, nil
}

func (s *NotificationStore) CountChannels(id string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM notification_channels WHERE id = ?`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count notification channels: %w", err)
	}
	return n, nil
}

// Post adds a notification to the user's tray, replacing any notification
// with the same id.
func (s *NotificationStore) Post(n model.Notification) (*model.Notification, error) {
	if n.PostedAt.IsZero() {
		n.PostedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO notifications (user_id, id, channel_id, title, body, priority, auto_cancel, posted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, id) DO UPDATE SET channel_id = excluded.channel_id, title = excluded.title,
		   body = excluded.body, priority = excluded.priority, auto_cancel = excluded.auto_cancel,
		   posted_at = excluded.posted_at`,
		n.UserID, n.ID, n.ChannelID, n.Title, n.Body, n.Priority, boolInt(n.AutoCancel), n.PostedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("post notification: %w", err)
	}
	return &n, nil
}

const notificationCols = `user_id, id, channel_id, title, body, priority, auto_cancel, posted_at`

func scanNotification(scanner interface{ Scan(...any) error }) (*model.Notification, error) {
	var n model.Notification
	var autoCancel int
	err := scanner.Scan(&n.UserID, &n.ID, &n.ChannelID, &n.Title, &n.Body, &n.Priority, &autoCancel, &n.PostedAt)
	if err != nil {
		return nil, err
	}
	n.AutoCancel = autoCancel != 0
	return &n, nil
}

func (s *NotificationStore) Get(userID int64, id int32) (*model.Notification, error) {
	row := s.db.QueryRow(`SELECT `+notificationCols+` FROM notifications WHERE user_id = ? AND id = ?`, userID, id)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// ListByUser returns a user's tray, newest first.
func (s *NotificationStore) ListByUser(userID int64) ([]model.Notification, error) {
	rows, err := s.db.Query(
		`SELECT `+notificationCols+` FROM notifications WHERE user_id = ? ORDER BY posted_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var list []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		list = append(list, *n)
	}
	return list, rows.Err()
}

// Dismiss removes a notification from the tray.
func (s *NotificationStore) Dismiss(userID int64, id int32) error {
	_, err := s.db.Exec(`DELETE FROM notifications WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("dismiss notification: %w", err)
	}
	return nil
}
