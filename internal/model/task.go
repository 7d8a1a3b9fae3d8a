package model

import "time"

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Task repeat options. Stored with the task; reminders are always one-shot.
const (
	RepeatNone    = "none"
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
)

// DateLayout is the dd/mm/yyyy form used for due dates and exam dates.
const DateLayout = "02/01/2006"

// TimeLayout is the 24-hour HH:mm form used for reminder times.
const TimeLayout = "15:04"

type Task struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Due             string    `json:"due"`
	Priority        string    `json:"priority"`
	Repeat          string    `json:"repeat"`
	ReminderEnabled bool      `json:"reminder_enabled"`
	ReminderTime    string    `json:"reminder_time"`
	ReminderID      int32     `json:"reminder_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Exam struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Subject         string    `json:"subject"`
	Date            string    `json:"date"`
	ReminderEnabled bool      `json:"reminder_enabled"`
	ReminderTime    string    `json:"reminder_time"`
	ReminderID      int32     `json:"reminder_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
