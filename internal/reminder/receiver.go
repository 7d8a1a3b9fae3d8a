package reminder

import (
	"context"
	"fmt"
	"log/slog"
)

// Publisher shows a notification to the user.
type Publisher interface {
	EnsureChannel(ctx context.Context) error
	Publish(ctx context.Context, id int32, title, message string) error
}

// Receiver handles fired reminder alarms.
type Receiver struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewReceiver(publisher Publisher, logger *slog.Logger) *Receiver {
	return &Receiver{publisher: publisher, logger: logger}
}

// Receive decodes payload and publishes it as a notification.
func (r *Receiver) Receive(ctx context.Context, payload []byte) error {
	d := Decode(payload)

	if err := r.publisher.EnsureChannel(ctx); err != nil {
		return fmt.Errorf("ensure channel: %w", err)
	}
	if err := r.publisher.Publish(ctx, d.ID, d.Title, d.Message); err != nil {
		return fmt.Errorf("publish reminder %d: %w", d.ID, err)
	}
	r.logger.Debug("reminder delivered", "id", d.ID)
	return nil
}
