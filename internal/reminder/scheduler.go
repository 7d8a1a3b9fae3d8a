// Package reminder turns a date and time entered in the editor into a
// one-shot alarm and, when that alarm fires, into a visible notification.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/melanieperez26/unitrack/internal/model"
	"github.com/melanieperez26/unitrack/internal/store"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

type Reason string

const (
	ReasonInvalidDate       Reason = "invalid_date"
	ReasonInvalidTime       Reason = "invalid_time"
	ReasonPastTrigger       Reason = "past_trigger"
	ReasonIDAllocation      Reason = "id_allocation"
	ReasonAlarmRegistration Reason = "alarm_registration"
)

// Request describes a reminder to schedule. ID 0 asks for a fresh id; a
// non-zero ID replaces the pending alarm with that id.
type Request struct {
	ID      int32
	Title   string
	Message string
	Date    string // dd/mm/yyyy
	Time    string // HH:mm
}

// Result reports what Schedule did. Err is set for failures.
type Result struct {
	Status    Status    `json:"status"`
	Reason    Reason    `json:"reason,omitempty"`
	ID        int32     `json:"id,omitempty"`
	TriggerAt time.Time `json:"trigger_at,omitempty"`
	Exact     bool      `json:"exact"`
	Err       error     `json:"-"`
}

func (r Result) Scheduled() bool {
	return r.Status == StatusScheduled
}

// AlarmFacility registers one-shot alarms carrying an opaque payload.
type AlarmFacility interface {
	CanScheduleExactAlarms() bool
	SetExact(ctx context.Context, id int32, at time.Time, payload []byte) error
	Set(ctx context.Context, id int32, at time.Time, payload []byte) error
	Cancel(ctx context.Context, id int32) error
}

// IDAllocator hands out reminder ids that are never reused while pending.
type IDAllocator interface {
	NextID(ctx context.Context) (int32, error)
}

// SequenceName is the counter that reminder ids are drawn from.
const SequenceName = "reminder_id"

// maxIDProbes bounds the search for a free id after the sequence wraps.
const maxIDProbes = 1024

// SequenceIDs allocates ids from the persisted sequence table, skipping ids
// that still have a pending alarm.
type SequenceIDs struct {
	seq     *store.SequenceStore
	pending *store.AlarmStore
}

func NewSequenceIDs(seq *store.SequenceStore, pending *store.AlarmStore) *SequenceIDs {
	return &SequenceIDs{seq: seq, pending: pending}
}

func (s *SequenceIDs) NextID(ctx context.Context) (int32, error) {
	for range maxIDProbes {
		id, err := s.seq.Next(SequenceName)
		if err != nil {
			return 0, err
		}
		taken, err := s.pending.Exists(id)
		if err != nil {
			return 0, err
		}
		if !taken {
			return id, nil
		}
	}
	return 0, fmt.Errorf("no free reminder id after %d tries", maxIDProbes)
}

// Scheduler registers reminder alarms.
type Scheduler struct {
	alarms AlarmFacility
	ids    IDAllocator
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewScheduler creates a Scheduler that interprets dates and times in loc.
func NewScheduler(alarms AlarmFacility, ids IDAllocator, loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		alarms: alarms,
		ids:    ids,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

// TriggerAt combines a dd/mm/yyyy date and an HH:mm time in loc, seconds zeroed.
func TriggerAt(date, clock string, loc *time.Location) (time.Time, Reason, error) {
	d, err := time.ParseInLocation(model.DateLayout, date, loc)
	if err != nil {
		return time.Time{}, ReasonInvalidDate, fmt.Errorf("parse date %q: %w", date, err)
	}
	c, err := time.ParseInLocation(model.TimeLayout, clock, loc)
	if err != nil {
		return time.Time{}, ReasonInvalidTime, fmt.Errorf("parse time %q: %w", clock, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc), "", nil
}

// Schedule registers an alarm for req. It never returns an error: parse
// problems and past trigger times skip the request, registration problems
// fail it, and both are only logged.
func (s *Scheduler) Schedule(ctx context.Context, req Request) Result {
	at, reason, err := TriggerAt(req.Date, req.Time, s.loc)
	if err != nil {
		s.logger.Warn("reminder skipped", "reason", reason, "error", err)
		return Result{Status: StatusSkipped, Reason: reason, ID: req.ID, Err: err}
	}

	if !at.After(s.now()) {
		s.logger.Info("reminder skipped", "reason", ReasonPastTrigger, "trigger_at", at)
		return Result{Status: StatusSkipped, Reason: ReasonPastTrigger, ID: req.ID, TriggerAt: at}
	}

	id := req.ID
	if id == 0 {
		id, err = s.ids.NextID(ctx)
		if err != nil {
			s.logger.Error("allocate reminder id", "error", err)
			return Result{Status: StatusFailed, Reason: ReasonIDAllocation, TriggerAt: at, Err: err}
		}
	}

	payload, err := Encode(id, req.Title, req.Message)
	if err != nil {
		s.logger.Error("encode reminder payload", "id", id, "error", err)
		return Result{Status: StatusFailed, Reason: ReasonAlarmRegistration, ID: id, TriggerAt: at, Err: err}
	}

	exact := s.alarms.CanScheduleExactAlarms()
	if exact {
		err = s.alarms.SetExact(ctx, id, at, payload)
	} else {
		err = s.alarms.Set(ctx, id, at, payload)
	}
	if err != nil {
		s.logger.Error("register reminder alarm", "id", id, "exact", exact, "error", err)
		return Result{Status: StatusFailed, Reason: ReasonAlarmRegistration, ID: id, TriggerAt: at, Exact: exact, Err: err}
	}

	s.logger.Info("reminder scheduled", "id", id, "trigger_at", at, "exact", exact)
	return Result{Status: StatusScheduled, ID: id, TriggerAt: at, Exact: exact}
}

// Cancel removes the pending alarm for id. Unknown ids are ignored.
func (s *Scheduler) Cancel(ctx context.Context, id int32) error {
	if id == 0 {
		return nil
	}
	if err := s.alarms.Cancel(ctx, id); err != nil {
		return fmt.Errorf("cancel reminder %d: %w", id, err)
	}
	s.logger.Info("reminder cancelled", "id", id)
	return nil
}
