package store

import (
	"database/sql"
	"fmt"

	"github.com/melanieperez26/unitrack/internal/model"
)

type ExamStore struct {
	db *sql.DB
}

func NewExamStore(db *sql.DB) *ExamStore {
	return &ExamStore{db: db}
}

func scanExam(scanner interface{ Scan(...any) error }) (*model.Exam, error) {
	var e model.Exam
	var reminderEnabled int

	err := scanner.Scan(
		&e.ID, &e.UserID, &e.Subject, &e.Date,
		&reminderEnabled, &e.ReminderTime, &e.ReminderID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.ReminderEnabled = reminderEnabled != 0
	return &e, nil
}

const examCols = `id, user_id, subject, date, reminder_enabled, reminder_time, reminder_id, created_at, updated_at`

func (s *ExamStore) Create(e model.Exam) (*model.Exam, error) {
	result, err := s.db.Exec(
		`INSERT INTO exams (user_id, subject, date, reminder_enabled, reminder_time, reminder_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Subject, e.Date, boolInt(e.ReminderEnabled), e.ReminderTime, e.ReminderID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert exam: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(e.UserID, id)
}

func (s *ExamStore) GetByID(userID, id int64) (*model.Exam, error) {
	row := s.db.QueryRow(`SELECT `+examCols+` FROM exams WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanExam(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return e, nil
}

func (s *ExamStore) ListByUser(userID int64) ([]model.Exam, error) {
	rows, err := s.db.Query(`SELECT `+examCols+` FROM exams WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

func (s *ExamStore) Update(e model.Exam) (*model.Exam, error) {
	result, err := s.db.Exec(
		`UPDATE exams SET subject = ?, date = ?, reminder_enabled = ?, reminder_time = ?, reminder_id = ?
		 WHERE id = ? AND user_id = ?`,
		e.Subject, e.Date, boolInt(e.ReminderEnabled), e.ReminderTime, e.ReminderID,
		e.ID, e.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByID(e.UserID, e.ID)
}

func (s *ExamStore) SetReminderID(userID, id int64, reminderID int32) error {
	_, err := s.db.Exec(`UPDATE exams SET reminder_id = ? WHERE id = ? AND user_id = ?`, reminderID, id, userID)
	if err != nil {
		return fmt.Errorf("set exam reminder id: %w", err)
	}
	return nil
}

func (s *ExamStore) Delete(userID, id int64) error {
	_, err := s.db.Exec(`DELETE FROM exams WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	return nil
}
