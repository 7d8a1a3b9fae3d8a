package store

import (
	"database/sql"
	"fmt"

	"github.com/melanieperez26/unitrack/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var reminderEnabled int

	err := scanner.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Due, &t.Priority, &t.Repeat,
		&reminderEnabled, &t.ReminderTime, &t.ReminderID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.ReminderEnabled = reminderEnabled != 0
	return &t, nil
}

const taskCols = `id, user_id, title, description, due, priority, repeat, reminder_enabled, reminder_time, reminder_id, created_at, updated_at`

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *TaskStore) Create(t model.Task) (*model.Task, error) {
	if t.Priority == "" {
		t.Priority = model.PriorityNormal
	}
	if t.Repeat == "" {
		t.Repeat = model.RepeatNone
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (user_id, title, description, due, priority, repeat, reminder_enabled, reminder_time, reminder_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Title, t.Description, t.Due, t.Priority, t.Repeat,
		boolInt(t.ReminderEnabled), t.ReminderTime, t.ReminderID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(t.UserID, id)
}

// GetByID returns the task with id owned by userID, or nil.
func (s *TaskStore) GetByID(userID, id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListByUser(userID int64) ([]model.Task, error) {
	rows, err := s.db.Query(`SELECT `+taskCols+` FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update overwrites the editable fields of a task. Returns nil if the task
// does not exist for userID.
func (s *TaskStore) Update(t model.Task) (*model.Task, error) {
	if t.Priority == "" {
		t.Priority = model.PriorityNormal
	}
	if t.Repeat == "" {
		t.Repeat = model.RepeatNone
	}

	result, err := s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, due = ?, priority = ?, repeat = ?,
		   reminder_enabled = ?, reminder_time = ?, reminder_id = ?
		 WHERE id = ? AND user_id = ?`,
		t.Title, t.Description, t.Due, t.Priority, t.Repeat,
		boolInt(t.ReminderEnabled), t.ReminderTime, t.ReminderID,
		t.ID, t.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByID(t.UserID, t.ID)
}

func (s *TaskStore) SetReminderID(userID, id int64, reminderID int32) error {
	_, err := s.db.Exec(`UPDATE tasks SET reminder_id = ? WHERE id = ? AND user_id = ?`, reminderID, id, userID)
	if err != nil {
		return fmt.Errorf("set task reminder id: %w", err)
	}
	return nil
}

func (s *TaskStore) Delete(userID, id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
