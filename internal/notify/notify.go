// Package notify publishes user-visible notifications through a
// notification facility.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Reminder channel registered before the first reminder is shown.
const (
	ChannelID          = "unitrack_reminder_channel"
	ChannelName        = "UniTrack Reminders"
	ChannelDescription = "Channel for UniTrack task and exam reminders"
)

// Importance and priority levels, numbered like the mobile platforms.
const (
	ImportanceLow     = 2
	ImportanceDefault = 3
	ImportanceHigh    = 4

	PriorityLow     = -1
	PriorityDefault = 0
	PriorityHigh    = 1
)

// ErrNoRecipient is returned when a notification has no signed-in owner.
var ErrNoRecipient = errors.New("notification has no recipient")

type Channel struct {
	ID          string
	Name        string
	Description string
	Importance  int
}

// ReminderChannel is the channel all reminders are posted under.
var ReminderChannel = Channel{
	ID:          ChannelID,
	Name:        ChannelName,
	Description: ChannelDescription,
	Importance:  ImportanceDefault,
}

type Notification struct {
	ID         int32
	ChannelID  string
	Title      string
	Body       string
	Priority   int
	AutoCancel bool
}

// Facility displays notifications. Facilities without channel support
// ignore CreateChannel.
type Facility interface {
	SupportsChannels() bool
	CreateChannel(ctx context.Context, ch Channel) error
	Notify(ctx context.Context, n Notification) error
}

// Publisher posts reminders under the reminder channel.
type Publisher struct {
	facility Facility
	logger   *slog.Logger
}

func NewPublisher(facility Facility, logger *slog.Logger) *Publisher {
	return &Publisher{facility: facility, logger: logger}
}

// EnsureChannel creates the reminder channel if it does not exist yet.
func (p *Publisher) EnsureChannel(ctx context.Context) error {
	if !p.facility.SupportsChannels() {
		return nil
	}
	if err := p.facility.CreateChannel(ctx, ReminderChannel); err != nil {
		return fmt.Errorf("create channel %s: %w", ChannelID, err)
	}
	return nil
}

// Publish shows a notification that dismisses itself when tapped. A
// notification with the same id replaces the previous one.
func (p *Publisher) Publish(ctx context.Context, id int32, title, message string) error {
	n := Notification{
		ID:         id,
		ChannelID:  ChannelID,
		Title:      title,
		Body:       message,
		Priority:   PriorityDefault,
		AutoCancel: true,
	}
	if err := p.facility.Notify(ctx, n); err != nil {
		return err
	}
	p.logger.Debug("notification published", "id", id)
	return nil
}

// Fanout delivers to several facilities in order.
type Fanout []Facility

func (f Fanout) SupportsChannels() bool {
	for _, fac := range f {
		if fac.SupportsChannels() {
			return true
		}
	}
	return false
}

func (f Fanout) CreateChannel(ctx context.Context, ch Channel) error {
	var errs []error
	for _, fac := range f {
		if !fac.SupportsChannels() {
			continue
		}
		if err := fac.CreateChannel(ctx, ch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, fac := range f {
		if err := fac.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
