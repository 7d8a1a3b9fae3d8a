package model

import "time"

// Alarm is a pending one-shot wake-up. ID doubles as the notification id
// of the reminder it carries.
type Alarm struct {
	ID          int32     `json:"id"`
	OwnerUserID int64     `json:"owner_user_id"`
	TriggerAt   time.Time `json:"trigger_at"`
	Exact       bool      `json:"exact"`
	Payload     []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
