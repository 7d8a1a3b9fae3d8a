package model

import "time"

type NotificationChannel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Importance  int       `json:"importance"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notification is an entry in a user's notification tray.
type Notification struct {
	UserID     int64     `json:"user_id"`
	ID         int32     `json:"id"`
	ChannelID  string    `json:"channel_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Priority   int       `json:"priority"`
	AutoCancel bool      `json:"auto_cancel"`
	PostedAt   time.Time `json:"posted_at"`
}

// PushSubscription is one browser endpoint registered for Web Push.
// Failures counts consecutive failed deliveries and resets on success.
type PushSubscription struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Endpoint        string     `json:"endpoint"`
	P256dhKey       string     `json:"p256dh_key"`
	AuthKey         string     `json:"auth_key"`
	DeviceName      string     `json:"device_name"`
	Failures        int        `json:"failures"`
	LastDeliveredAt *time.Time `json:"last_delivered_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
