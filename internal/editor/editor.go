// Package editor saves tasks and exams and keeps their reminders in step
// with what was saved.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/melanieperez26/unitrack/internal/auth"
	"github.com/melanieperez26/unitrack/internal/backend"
	"github.com/melanieperez26/unitrack/internal/model"
	"github.com/melanieperez26/unitrack/internal/reminder"
)

var (
	ErrTitleRequired   = errors.New("title is required")
	ErrUnauthenticated = errors.New("user not authenticated")
)

// ValidationError reports a field the user has to fix.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ReminderScheduler is the part of the reminder scheduler the editor uses.
type ReminderScheduler interface {
	Schedule(ctx context.Context, req reminder.Request) reminder.Result
	Cancel(ctx context.Context, id int32) error
}

type TaskInput struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Due             string `json:"due"`
	Priority        string `json:"priority"`
	Repeat          string `json:"repeat"`
	ReminderEnabled bool   `json:"reminder_enabled"`
	ReminderTime    string `json:"reminder_time"`
}

type ExamInput struct {
	Subject         string `json:"subject"`
	Date            string `json:"date"`
	ReminderEnabled bool   `json:"reminder_enabled"`
	ReminderTime    string `json:"reminder_time"`
}

// SaveResult is the id of the saved document and, when a reminder was
// requested, what the scheduler did with it.
type SaveResult struct {
	ID       int64            `json:"id"`
	Reminder *reminder.Result `json:"reminder,omitempty"`
}

type Editor struct {
	docs      backend.DocumentStore
	reminders ReminderScheduler
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

func New(docs backend.DocumentStore, reminders ReminderScheduler, loc *time.Location, logger *slog.Logger) *Editor {
	if loc == nil {
		loc = time.Local
	}
	return &Editor{
		docs:      docs,
		reminders: reminders,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
}

// userContext makes sure ctx carries userID so alarms get an owner.
func userContext(ctx context.Context, userID int64) (context.Context, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	if auth.UserID(ctx) != userID {
		ctx = auth.ForUser(ctx, userID)
	}
	return ctx, nil
}

// validateDate accepts an empty date or a dd/mm/yyyy date that is today or later.
func (e *Editor) validateDate(field, date string) error {
	if date == "" {
		return nil
	}
	d, err := time.ParseInLocation(model.DateLayout, date, e.loc)
	if err != nil {
		return &ValidationError{Field: field, Message: "invalid date format"}
	}
	y, m, day := e.now().In(e.loc).Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, e.loc)
	if d.Before(today) {
		return &ValidationError{Field: field, Message: "past dates are not allowed"}
	}
	return nil
}

func validateTime(clock string) error {
	if clock == "" {
		return nil
	}
	if _, err := time.Parse(model.TimeLayout, clock); err != nil {
		return &ValidationError{Field: "reminder_time", Message: "invalid time format"}
	}
	return nil
}

func normalizePriority(p string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "":
		return model.PriorityNormal, nil
	case model.PriorityLow:
		return model.PriorityLow, nil
	case model.PriorityNormal:
		return model.PriorityNormal, nil
	case model.PriorityHigh:
		return model.PriorityHigh, nil
	}
	return "", &ValidationError{Field: "priority", Message: "must be low, normal or high"}
}

func normalizeRepeat(r string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(r)) {
	case "":
		return model.RepeatNone, nil
	case model.RepeatNone, model.RepeatDaily, model.RepeatWeekly, model.RepeatMonthly:
		return strings.ToLower(strings.TrimSpace(r)), nil
	}
	return "", &ValidationError{Field: "repeat", Message: "must be none, daily, weekly or monthly"}
}

// SaveTask creates the task when taskID is 0 and updates it otherwise.
func (e *Editor) SaveTask(ctx context.Context, userID, taskID int64, in TaskInput) (*SaveResult, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Due = strings.TrimSpace(in.Due)
	in.ReminderTime = strings.TrimSpace(in.ReminderTime)
	if in.Title == "" {
		return nil, ErrTitleRequired
	}
	ctx, err := userContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := e.validateDate("due", in.Due); err != nil {
		return nil, err
	}
	if err := validateTime(in.ReminderTime); err != nil {
		return nil, err
	}
	priority, err := normalizePriority(in.Priority)
	if err != nil {
		return nil, err
	}
	repeat, err := normalizeRepeat(in.Repeat)
	if err != nil {
		return nil, err
	}

	task := model.Task{
		ID:              taskID,
		UserID:          userID,
		Title:           in.Title,
		Description:     in.Description,
		Due:             in.Due,
		Priority:        priority,
		Repeat:          repeat,
		ReminderEnabled: in.ReminderEnabled,
		ReminderTime:    in.ReminderTime,
	}

	var saved *model.Task
	if taskID == 0 {
		saved, err = e.docs.AddTask(ctx, task)
	} else {
		existing, gerr := e.docs.GetTask(ctx, userID, taskID)
		if gerr != nil {
			return nil, gerr
		}
		task.ReminderID = existing.ReminderID
		saved, err = e.docs.UpdateTask(ctx, task)
	}
	if err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	res := &SaveResult{ID: saved.ID}
	res.Reminder = e.syncReminder(ctx, saved.ReminderID, saved.ReminderEnabled, saved.Due, saved.ReminderTime,
		saved.Title, saved.Description,
		func(id int32) error { return e.docs.SetTaskReminder(ctx, userID, saved.ID, id) })
	return res, nil
}

// SaveExam creates the exam when examID is 0 and updates it otherwise.
func (e *Editor) SaveExam(ctx context.Context, userID, examID int64, in ExamInput) (*SaveResult, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Date = strings.TrimSpace(in.Date)
	in.ReminderTime = strings.TrimSpace(in.ReminderTime)
	if in.Subject == "" {
		return nil, ErrTitleRequired
	}
	ctx, err := userContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := e.validateDate("date", in.Date); err != nil {
		return nil, err
	}
	if err := validateTime(in.ReminderTime); err != nil {
		return nil, err
	}

	exam := model.Exam{
		ID:              examID,
		UserID:          userID,
		Subject:         in.Subject,
		Date:            in.Date,
		ReminderEnabled: in.ReminderEnabled,
		ReminderTime:    in.ReminderTime,
	}

	var saved *model.Exam
	if examID == 0 {
		saved, err = e.docs.AddExam(ctx, exam)
	} else {
		existing, gerr := e.docs.GetExam(ctx, userID, examID)
		if gerr != nil {
			return nil, gerr
		}
		exam.ReminderID = existing.ReminderID
		saved, err = e.docs.UpdateExam(ctx, exam)
	}
	if err != nil {
		return nil, fmt.Errorf("save exam: %w", err)
	}

	res := &SaveResult{ID: saved.ID}
	res.Reminder = e.syncReminder(ctx, saved.ReminderID, saved.ReminderEnabled, saved.Date, saved.ReminderTime,
		saved.Subject, "",
		func(id int32) error { return e.docs.SetExamReminder(ctx, userID, saved.ID, id) })
	return res, nil
}

// syncReminder schedules the reminder of a saved document when it has one
// fully specified, or cancels a previous one when it no longer does. The
// allocated id is stored back on the document so later edits replace the
// same alarm.
func (e *Editor) syncReminder(ctx context.Context, currentID int32, enabled bool, date, clock, title, message string, storeID func(int32) error) *reminder.Result {
	if !enabled || date == "" || clock == "" {
		e.dropReminder(ctx, currentID, storeID)
		return nil
	}

	res := e.reminders.Schedule(ctx, reminder.Request{
		ID:      currentID,
		Title:   title,
		Message: message,
		Date:    date,
		Time:    clock,
	})
	if res.Scheduled() && res.ID != currentID {
		if err := storeID(res.ID); err != nil {
			e.logger.Warn("store reminder id", "id", res.ID, "error", err)
		}
	}
	if !res.Scheduled() {
		e.logger.Info("reminder not scheduled", "status", res.Status, "reason", res.Reason)
		// The old alarm would still fire at the previous time.
		e.dropReminder(ctx, currentID, storeID)
	}
	return &res
}

func (e *Editor) dropReminder(ctx context.Context, id int32, storeID func(int32) error) {
	if id == 0 {
		return
	}
	if err := e.reminders.Cancel(ctx, id); err != nil {
		e.logger.Warn("cancel reminder", "id", id, "error", err)
	}
	if err := storeID(0); err != nil {
		e.logger.Warn("clear reminder id", "id", id, "error", err)
	}
}

// DeleteTask removes the task and its pending reminder.
func (e *Editor) DeleteTask(ctx context.Context, userID, taskID int64) error {
	ctx, err := userContext(ctx, userID)
	if err != nil {
		return err
	}
	task, err := e.docs.GetTask(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if err := e.docs.DeleteTask(ctx, userID, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if err := e.reminders.Cancel(ctx, task.ReminderID); err != nil {
		e.logger.Warn("cancel reminder", "id", task.ReminderID, "error", err)
	}
	return nil
}

// DeleteExam removes the exam and its pending reminder.
func (e *Editor) DeleteExam(ctx context.Context, userID, examID int64) error {
	ctx, err := userContext(ctx, userID)
	if err != nil {
		return err
	}
	exam, err := e.docs.GetExam(ctx, userID, examID)
	if err != nil {
		return err
	}
	if err := e.docs.DeleteExam(ctx, userID, examID); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	if err := e.reminders.Cancel(ctx, exam.ReminderID); err != nil {
		e.logger.Warn("cancel reminder", "id", exam.ReminderID, "error", err)
	}
	return nil
}
