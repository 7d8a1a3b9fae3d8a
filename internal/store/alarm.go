package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/melanieperez26/unitrack/internal/model"
)

// ErrAlarmOwned is returned when an alarm id is pending for another owner.
var ErrAlarmOwned = errors.New("alarm id held by another owner")

// AlarmStore is the table of pending one-shot alarms, keyed by alarm id.
type AlarmStore struct {
	db *sql.DB
}

func NewAlarmStore(db *sql.DB) *AlarmStore {
	return &AlarmStore{db: db}
}

const alarmCols = `id, owner_user_id, trigger_ms, exact, payload, created_at, updated_at`

func scanAlarm(scanner interface{ Scan(...any) error }) (*model.Alarm, error) {
	var a model.Alarm
	var triggerMs int64
	var exact int
	err := scanner.Scan(&a.ID, &a.OwnerUserID, &triggerMs, &exact, &a.Payload, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.TriggerAt = time.UnixMilli(triggerMs)
	a.Exact = exact != 0
	return &a, nil
}

// Upsert registers an alarm, replacing the owner's pending alarm with the
// same id. An id pending for a different owner is left untouched.
func (s *AlarmStore) Upsert(id int32, ownerUserID int64, triggerAt time.Time, exact bool, payload []byte) error {
	if payload == nil {
		payload = []byte{}
	}
	res, err := s.db.Exec(
		`INSERT INTO alarms (id, owner_user_id, trigger_ms, exact, payload, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET trigger_ms = excluded.trigger_ms,
		   exact = excluded.exact, payload = excluded.payload, updated_at = excluded.updated_at
		 WHERE alarms.owner_user_id = excluded.owner_user_id`,
		id, ownerUserID, triggerAt.UnixMilli(), boolInt(exact), payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert alarm %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert alarm %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("upsert alarm %d: %w", id, ErrAlarmOwned)
	}
	return nil
}

// Exists reports whether an alarm with id is pending.
func (s *AlarmStore) Exists(id int32) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM alarms WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("check alarm %d: %w", id, err)
	}
	return n > 0, nil
}

func (s *AlarmStore) GetByID(id int32) (*model.Alarm, error) {
	row := s.db.QueryRow(`SELECT `+alarmCols+` FROM alarms WHERE id = ?`, id)
	a, err := scanAlarm(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alarm: %w", err)
	}
	return a, nil
}

// ListDue returns alarms that should fire at now: exact alarms whose trigger
// has passed and inexact alarms whose trigger is at least window in the past.
// Results are ordered by trigger time.
func (s *AlarmStore) ListDue(now time.Time, window time.Duration) ([]model.Alarm, error) {
	nowMs := now.UnixMilli()
	inexactCutoff := now.Add(-window).UnixMilli()

	rows, err := s.db.Query(
		`SELECT `+alarmCols+` FROM alarms
		 WHERE (exact = 1 AND trigger_ms <= ?) OR (exact = 0 AND trigger_ms <= ?)
		 ORDER BY trigger_ms, id`,
		nowMs, inexactCutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list due alarms: %w", err)
	}
	defer rows.Close()
	return scanAlarms(rows)
}

func (s *AlarmStore) ListByOwner(ownerUserID int64) ([]model.Alarm, error) {
	rows, err := s.db.Query(
		`SELECT `+alarmCols+` FROM alarms WHERE owner_user_id = ? ORDER BY trigger_ms, id`,
		ownerUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("list alarms by owner: %w", err)
	}
	defer rows.Close()
	return scanAlarms(rows)
}

// Delete removes a pending alarm and reports whether one existed.
func (s *AlarmStore) Delete(id int32) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM alarms WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete alarm %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *AlarmStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM alarms`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count alarms: %w", err)
	}
	return n, nil
}

func scanAlarms(rows *sql.Rows) ([]model.Alarm, error) {
	var alarms []model.Alarm
	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alarm: %w", err)
		}
		alarms = append(alarms, *a)
	}
	return alarms, rows.Err()
}
