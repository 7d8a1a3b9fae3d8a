package reminder

import (
	"context"
	"log/slog"
	"math"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/melanieperez26/unitrack/internal/alarm"
	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/database"
	"github.com/melanieperez26/unitrack/internal/notify"
	"github.com/melanieperez26/unitrack/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type pipeline struct {
	scheduler *Scheduler
	alarms    *alarm.Manager
	alarmDB   *store.AlarmStore
	tray      *notify.Tray
	notes     *store.NotificationStore
}

func setupPipeline(t *testing.T, exact bool) *pipeline {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.Default()
	notes := store.NewNotificationStore(db)
	tray := notify.NewTray(notes, nil)
	receiver := NewReceiver(notify.NewPublisher(tray, logger), logger)

	alarmDB := store.NewAlarmStore(db)
	mgr := alarm.NewManager(alarmDB, receiver.Receive, alarm.Config{ExactAllowed: exact}, logger)

	sched := NewScheduler(mgr, NewSequenceIDs(store.NewSequenceStore(db), alarmDB), time.Local, logger)
	return &pipeline{scheduler: sched, alarms: mgr, alarmDB: alarmDB, tray: tray, notes: notes}
}

func TestEndToEndFutureReminder(t *testing.T) {
	p := setupPipeline(t, true)
	ctx := auth.ForUser(context.Background(), 1)

	res := p.scheduler.Schedule(ctx, Request{
		Title:   "Exam",
		Message: "Math exam tomorrow",
		Date:    "31/12/2099",
		Time:    "09:00",
	})
	if !res.Scheduled() {
		t.Fatalf("result = %+v, want scheduled", res)
	}

	pending, err := p.alarms.Pending(1)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	want := time.Date(2099, 12, 31, 9, 0, 0, 0, time.Local)
	if !pending[0].TriggerAt.Equal(want) || !pending[0].Exact {
		t.Errorf("alarm = %v exact=%v, want %v exact", pending[0].TriggerAt, pending[0].Exact, want)
	}
	if pending[0].ID != res.ID {
		t.Errorf("alarm id = %d, want %d", pending[0].ID, res.ID)
	}

	// simulate the alarm firing
	a, _ := p.alarmDB.GetByID(res.ID)
	if err := NewReceiver(notify.NewPublisher(p.tray, slog.Default()), slog.Default()).Receive(ctx, a.Payload); err != nil {
		t.Fatalf("receive: %v", err)
	}

	list, err := p.tray.List(1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("notifications = %d, want 1", len(list))
	}
	n := list[0]
	if n.Title != "Exam" || n.Body != "Math exam tomorrow" || n.ChannelID != "unitrack_reminder_channel" {
		t.Errorf("notification = %+v", n)
	}
	if n.ID != res.ID {
		t.Errorf("notification id = %d, want %d", n.ID, res.ID)
	}
	if c, _ := p.notes.CountChannels(notify.ChannelID); c != 1 {
		t.Errorf("channels = %d, want 1", c)
	}
}

func TestEndToEndPastReminder(t *testing.T) {
	p := setupPipeline(t, true)
	ctx := auth.ForUser(context.Background(), 1)

	res := p.scheduler.Schedule(ctx, Request{Title: "Exam", Date: "01/01/2000", Time: "09:00"})
	if res.Status != StatusSkipped {
		t.Errorf("status = %s, want skipped", res.Status)
	}
	if n, _ := p.alarmDB.Count(); n != 0 {
		t.Errorf("alarms = %d, want 0", n)
	}
}

func TestEndToEndDispatch(t *testing.T) {
	p := setupPipeline(t, false)
	ctx := auth.ForUser(context.Background(), 2)

	res := p.scheduler.Schedule(ctx, Request{Title: "Lab", Message: "Bring goggles", Date: "31/12/2099", Time: "09:00"})
	if !res.Scheduled() || res.Exact {
		t.Fatalf("result = %+v, want scheduled inexact", res)
	}

	// move the overdue alarm into the past so the dispatcher fires it
	if err := p.alarmDB.Upsert(res.ID, 2, time.Now().Add(-time.Hour), false, mustEncode(t, res.ID, "Lab", "Bring goggles")); err != nil {
		t.Fatalf("rewind alarm: %v", err)
	}
	fired, err := p.alarms.RunDue(context.Background())
	if err != nil {
		t.Fatalf("run due: %v", err)
	}
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}

	list, _ := p.tray.List(2)
	if len(list) != 1 || list[0].Body != "Bring goggles" {
		t.Errorf("tray = %+v", list)
	}
}

func mustEncode(t *testing.T, id int32, title, message string) []byte {
	t.Helper()
	data, err := Encode(id, title, message)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func TestSequenceIDsSkipPendingAfterWrap(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`INSERT INTO sequences (name, value) VALUES (?, ?)`, SequenceName, math.MaxInt32); err != nil {
		t.Fatalf("seed sequence: %v", err)
	}
	alarmDB := store.NewAlarmStore(db)
	at := time.Now().Add(time.Hour)
	for _, id := range []int32{1, 2} {
		if err := alarmDB.Upsert(id, 5, at, true, nil); err != nil {
			t.Fatalf("seed alarm %d: %v", id, err)
		}
	}

	ids := NewSequenceIDs(store.NewSequenceStore(db), alarmDB)
	got, err := ids.NextID(context.Background())
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if got != 3 {
		t.Errorf("next id = %d, want 3", got)
	}

	a, _ := alarmDB.GetByID(1)
	if a == nil || a.OwnerUserID != 5 {
		t.Errorf("alarm 1 = %+v, want still owned by user 5", a)
	}
}
