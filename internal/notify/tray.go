package notify

import (
	"context"
	"fmt"

	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/model"
	"github.com/melanieperez26/unitrack/internal/store"
	ws "github.com/melanieperez26/unitrack/internal/websocket"
)

// Broadcaster pushes updates to a user's live clients.
type Broadcaster interface {
	Send(userID int64, msg ws.Message)
}

// Tray keeps each user's notifications in SQLite and mirrors changes to
// their connected clients.
type Tray struct {
	notifications *store.NotificationStore
	hub           Broadcaster
}

// NewTray creates a tray. hub may be nil.
func NewTray(notifications *store.NotificationStore, hub Broadcaster) *Tray {
	return &Tray{notifications: notifications, hub: hub}
}

func (t *Tray) SupportsChannels() bool { return true }

func (t *Tray) CreateChannel(ctx context.Context, ch Channel) error {
	_, err := t.notifications.CreateChannel(ch.ID, ch.Name, ch.Description, ch.Importance)
	return err
}

// Notify posts n to the tray of the user in ctx.
func (t *Tray) Notify(ctx context.Context, n Notification) error {
	userID := auth.UserID(ctx)
	if userID == 0 {
		return ErrNoRecipient
	}

	posted, err := t.notifications.Post(model.Notification{
		UserID:     userID,
		ID:         n.ID,
		ChannelID:  n.ChannelID,
		Title:      n.Title,
		Body:       n.Body,
		Priority:   n.Priority,
		AutoCancel: n.AutoCancel,
	})
	if err != nil {
		return fmt.Errorf("post to tray: %w", err)
	}

	if t.hub != nil {
		t.hub.Send(userID, ws.NewMessage("notification", "posted", int64(n.ID), map[string]any{
			"channel_id":  posted.ChannelID,
			"title":       posted.Title,
			"body":        posted.Body,
			"auto_cancel": posted.AutoCancel,
			"posted_at":   posted.PostedAt,
		}))
	}
	return nil
}

func (t *Tray) List(userID int64) ([]model.Notification, error) {
	return t.notifications.ListByUser(userID)
}

// Dismiss removes a notification, as when the user taps an auto-cancel
// notification or swipes it away.
func (t *Tray) Dismiss(userID int64, id int32) error {
	if err := t.notifications.Dismiss(userID, id); err != nil {
		return err
	}
	if t.hub != nil {
		t.hub.Send(userID, ws.NewMessage("notification", "dismissed", int64(id), nil))
	}
	return nil
}
