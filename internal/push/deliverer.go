package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/model"
	"github.com/melanieperez26/unitrack/internal/notify"
)

// ErrQueueFull is returned when the delivery queue cannot take another job.
var ErrQueueFull = errors.New("push queue full")

// Sender delivers one payload to one subscription.
type Sender interface {
	Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error
}

// MaxFailures is how many deliveries in a row may fail before a
// subscription is dropped.
const MaxFailures = 5

// Subscriptions looks up a user's push subscriptions and tracks their health.
type Subscriptions interface {
	ForUser(userID int64) ([]model.PushSubscription, error)
	RemoveEndpoint(endpoint string) error
	MarkDelivered(id int64) error
	RecordFailure(id int64) (int, error)
}

type job struct {
	userID  int64
	payload Payload
}

// Deliverer is a notification facility that forwards notifications to the
// owner's Web Push subscriptions from a background worker, so callers
// never wait on the network.
type Deliverer struct {
	mu     sync.RWMutex
	sender Sender
	subs   Subscriptions
	queue  chan job
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func NewDeliverer(sender Sender, subs Subscriptions, queueSize int, logger *slog.Logger) *Deliverer {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Deliverer{
		sender: sender,
		subs:   subs,
		queue:  make(chan job, queueSize),
		logger: logger,
	}
}

func (d *Deliverer) SupportsChannels() bool { return false }

func (d *Deliverer) CreateChannel(ctx context.Context, ch notify.Channel) error { return nil }

// Notify queues n for the user in ctx.
func (d *Deliverer) Notify(ctx context.Context, n notify.Notification) error {
	userID := auth.UserID(ctx)
	if userID == 0 {
		return notify.ErrNoRecipient
	}

	j := job{
		userID: userID,
		payload: Payload{
			ID:    n.ID,
			Title: n.Title,
			Body:  n.Body,
			Tag:   fmt.Sprintf("reminder-%d", n.ID),
		},
	}
	select {
	case d.queue <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start begins the delivery worker.
func (d *Deliverer) Start(ctx context.Context) {
	d.mu.Lock()
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	d.mu.Unlock()

	go func() {
		defer close(d.done)
		for {
			select {
			case <-ctx.Done():
				return
			case j := <-d.queue:
				d.deliver(ctx, j)
			}
		}
	}()
}

// Stop gracefully stops the worker. Queued jobs that have not started are dropped.
func (d *Deliverer) Stop() {
	d.mu.RLock()
	cancel := d.cancel
	done := d.done
	d.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (d *Deliverer) deliver(ctx context.Context, j job) {
	subs, err := d.subs.ForUser(j.userID)
	if err != nil {
		d.logger.Error("list push subscriptions", "user_id", j.userID, "error", err)
		return
	}

	for i := range subs {
		sub := &subs[i]
		err := d.sender.Send(ctx, sub, j.payload)
		switch {
		case err == nil:
			if err := d.subs.MarkDelivered(sub.ID); err != nil {
				d.logger.Error("mark push delivered", "subscription", sub.ID, "error", err)
			}
		case errors.Is(err, ErrExpired):
			d.drop(sub, "expired")
		default:
			d.logger.Warn("send push", "user_id", j.userID, "subscription", sub.ID, "error", err)
			n, ferr := d.subs.RecordFailure(sub.ID)
			if ferr != nil {
				d.logger.Error("record push failure", "subscription", sub.ID, "error", ferr)
				continue
			}
			if n >= MaxFailures {
				d.drop(sub, "failing")
			}
		}
	}
}

func (d *Deliverer) drop(sub *model.PushSubscription, reason string) {
	if err := d.subs.RemoveEndpoint(sub.Endpoint); err != nil {
		d.logger.Error("remove push subscription", "subscription", sub.ID, "error", err)
		return
	}
	d.logger.Info("removed push subscription", "subscription", sub.ID, "user_id", sub.UserID, "reason", reason)
}
