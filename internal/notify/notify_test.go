package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/database"
	"github.com/melanieperez26/unitrack/internal/store"
	ws "github.com/melanieperez26/unitrack/internal/websocket"
)

type fakeFacility struct {
	channels bool
	created  []Channel
	notified []Notification
	err      error
}

func (f *fakeFacility) SupportsChannels() bool { return f.channels }

func (f *fakeFacility) CreateChannel(ctx context.Context, ch Channel) error {
	f.created = append(f.created, ch)
	return f.err
}

func (f *fakeFacility) Notify(ctx context.Context, n Notification) error {
	f.notified = append(f.notified, n)
	return f.err
}

type recordingHub struct {
	mu   sync.Mutex
	sent []ws.Message
}

func (h *recordingHub) Send(userID int64, msg ws.Message) {
	h.mu.Lock()
	h.sent = append(h.sent, msg)
	h.mu.Unlock()
}

func asUser(id int64) context.Context {
	return auth.ForUser(context.Background(), id)
}

func TestEnsureChannel(t *testing.T) {
	fac := &fakeFacility{channels: true}
	p := NewPublisher(fac, slog.Default())

	if err := p.EnsureChannel(context.Background()); err != nil {
		t.Fatalf("ensure channel: %v", err)
	}
	if len(fac.created) != 1 {
		t.Fatalf("created = %d, want 1", len(fac.created))
	}
	ch := fac.created[0]
	if ch.ID != "unitrack_reminder_channel" || ch.Name != "UniTrack Reminders" {
		t.Errorf("channel = %+v", ch)
	}
	if ch.Description != "Channel for UniTrack task and exam reminders" {
		t.Errorf("description = %q", ch.Description)
	}
	if ch.Importance != ImportanceDefault {
		t.Errorf("importance = %d, want %d", ch.Importance, ImportanceDefault)
	}
}

func TestEnsureChannelUnsupported(t *testing.T) {
	fac := &fakeFacility{channels: false}
	p := NewPublisher(fac, slog.Default())

	if err := p.EnsureChannel(context.Background()); err != nil {
		t.Fatalf("ensure channel: %v", err)
	}
	if len(fac.created) != 0 {
		t.Error("expected no channel calls on a facility without channels")
	}
}

func TestPublish(t *testing.T) {
	fac := &fakeFacility{channels: true}
	p := NewPublisher(fac, slog.Default())

	if err := p.Publish(context.Background(), 12, "Exam", "Math exam tomorrow"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	n := fac.notified[0]
	if n.ID != 12 || n.Title != "Exam" || n.Body != "Math exam tomorrow" {
		t.Errorf("notification = %+v", n)
	}
	if n.ChannelID != ChannelID || !n.AutoCancel || n.Priority != PriorityDefault {
		t.Errorf("notification flags = %+v", n)
	}
}

func TestPublishError(t *testing.T) {
	fac := &fakeFacility{err: errors.New("facility down")}
	p := NewPublisher(fac, slog.Default())

	if err := p.Publish(context.Background(), 1, "t", "m"); err == nil {
		t.Error("expected error to propagate")
	}
}

func TestFanout(t *testing.T) {
	tray := &fakeFacility{channels: true}
	push := &fakeFacility{channels: false, err: errors.New("queue full")}
	f := Fanout{tray, push}

	if !f.SupportsChannels() {
		t.Error("expected fanout to support channels")
	}
	f.CreateChannel(context.Background(), ReminderChannel)
	if len(tray.created) != 1 || len(push.created) != 0 {
		t.Errorf("created tray=%d push=%d, want 1 0", len(tray.created), len(push.created))
	}

	err := f.Notify(context.Background(), Notification{ID: 1})
	if err == nil {
		t.Error("expected push error to surface")
	}
	if len(tray.notified) != 1 {
		t.Error("expected tray delivery despite push error")
	}
}

func setupTray(t *testing.T) (*Tray, *recordingHub) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	hub := &recordingHub{}
	return NewTray(store.NewNotificationStore(db), hub), hub
}

func TestTrayPublishAndDismiss(t *testing.T) {
	tray, hub := setupTray(t)
	p := NewPublisher(tray, slog.Default())
	ctx := asUser(5)

	// twice: channel creation is idempotent
	for i := 0; i < 2; i++ {
		if err := p.EnsureChannel(ctx); err != nil {
			t.Fatalf("ensure channel: %v", err)
		}
	}
	if err := p.Publish(ctx, 77, "Exam", "Math exam tomorrow"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Publish(ctx, 77, "Exam", "Math exam today"); err != nil {
		t.Fatalf("publish again: %v", err)
	}

	list, err := tray.List(5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("tray size = %d, want 1", len(list))
	}
	if list[0].Body != "Math exam today" || list[0].ChannelID != ChannelID {
		t.Errorf("notification = %+v", list[0])
	}

	if err := tray.Dismiss(5, 77); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	list, _ = tray.List(5)
	if len(list) != 0 {
		t.Errorf("tray size after dismiss = %d, want 0", len(list))
	}

	if len(hub.sent) != 3 {
		t.Fatalf("messages = %d, want 3", len(hub.sent))
	}
	if hub.sent[0].Type != "notification_posted" || hub.sent[2].Type != "notification_dismissed" {
		t.Errorf("message types = %s, %s", hub.sent[0].Type, hub.sent[2].Type)
	}
}

func TestTrayRequiresRecipient(t *testing.T) {
	tray, _ := setupTray(t)
	tray.CreateChannel(context.Background(), ReminderChannel)

	err := tray.Notify(context.Background(), Notification{ID: 1, ChannelID: ChannelID})
	if !errors.Is(err, ErrNoRecipient) {
		t.Errorf("err = %v, want ErrNoRecipient", err)
	}
}
