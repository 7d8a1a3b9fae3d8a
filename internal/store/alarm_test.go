package store

import (
	"errors"
	"testing"
	"time"
)

func TestAlarmUpsertReplaces(t *testing.T) {
	as := NewAlarmStore(newTestDB(t))
	at := time.Date(2099, 12, 31, 9, 0, 0, 0, time.UTC)

	if err := as.Upsert(5, 1, at, true, []byte(`{"id":5}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := as.Upsert(5, 1, at.Add(time.Hour), false, []byte(`{"id":5,"title":"x"}`)); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	n, _ := as.Count()
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	a, err := as.GetByID(5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !a.TriggerAt.Equal(at.Add(time.Hour)) {
		t.Errorf("trigger_at = %v, want %v", a.TriggerAt, at.Add(time.Hour))
	}
	if a.Exact {
		t.Error("expected inexact after replace")
	}
	if string(a.Payload) != `{"id":5,"title":"x"}` {
		t.Errorf("payload = %s", a.Payload)
	}
}

func TestAlarmListDue(t *testing.T) {
	as := NewAlarmStore(newTestDB(t))
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	window := 10 * time.Minute

	as.Upsert(1, 1, now.Add(-time.Minute), true, nil)     // exact, due
	as.Upsert(2, 1, now.Add(-time.Minute), false, nil)    // inexact, inside window
	as.Upsert(3, 1, now.Add(-11*time.Minute), false, nil) // inexact, past window
	as.Upsert(4, 1, now.Add(time.Minute), true, nil)      // future
	as.Upsert(5, 1, now.Add(-30*time.Minute), true, nil)  // exact, oldest

	due, err := as.ListDue(now, window)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	var ids []int32
	for _, a := range due {
		ids = append(ids, a.ID)
	}
	want := []int32{5, 3, 1}
	if len(ids) != len(want) {
		t.Fatalf("due = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("due[%d] = %d, want %d", i, ids[i], want[i])
		}
	}
}

func TestAlarmDeleteAndOwner(t *testing.T) {
	as := NewAlarmStore(newTestDB(t))
	at := time.Now().Add(time.Hour)

	as.Upsert(1, 10, at, true, nil)
	as.Upsert(2, 20, at, true, nil)

	mine, err := as.ListByOwner(10)
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != 1 {
		t.Errorf("owner 10 alarms = %v", mine)
	}

	existed, err := as.Delete(1)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !existed {
		t.Error("expected delete to report existing alarm")
	}
	existed, _ = as.Delete(1)
	if existed {
		t.Error("expected second delete to report missing alarm")
	}
	if a, _ := as.GetByID(1); a != nil {
		t.Error("expected alarm gone")
	}
}

func TestAlarmUpsertKeepsOtherOwner(t *testing.T) {
	as := NewAlarmStore(newTestDB(t))
	at := time.Date(2099, 12, 31, 9, 0, 0, 0, time.UTC)

	if err := as.Upsert(7, 10, at, true, []byte(`{"id":7}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	err := as.Upsert(7, 20, at.Add(time.Hour), false, []byte(`{"id":7,"title":"other"}`))
	if !errors.Is(err, ErrAlarmOwned) {
		t.Fatalf("err = %v, want ErrAlarmOwned", err)
	}

	a, err := as.GetByID(7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a.OwnerUserID != 10 || !a.TriggerAt.Equal(at) || string(a.Payload) != `{"id":7}` {
		t.Errorf("alarm = %+v, want owner 10 unchanged", a)
	}

	ok, err := as.Exists(7)
	if err != nil || !ok {
		t.Errorf("Exists(7) = %v, %v; want true", ok, err)
	}
	if ok, _ := as.Exists(8); ok {
		t.Error("Exists(8) = true, want false")
	}
}
