package store

import (
	"database/sql"
	"fmt"
	"math"
)

// SequenceStore hands out monotonically increasing int32 values per name.
type SequenceStore struct {
	db *sql.DB
}

func NewSequenceStore(db *sql.DB) *SequenceStore {
	return &SequenceStore{db: db}
}

// Next advances the named sequence and returns the new value. Values start
// at 1 and wrap back to 1 after math.MaxInt32.
func (s *SequenceStore) Next(name string) (int32, error) {
	var v int64
	err := s.db.QueryRow(
		`INSERT INTO sequences (name, value) VALUES (?, 1)
		 ON CONFLICT(name) DO UPDATE SET value = CASE WHEN value >= ? THEN 1 ELSE value + 1 END
		 RETURNING value`,
		name, math.MaxInt32,
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("next %s: %w", name, err)
	}
	return int32(v), nil
}

// Current returns the last value handed out, or 0 if the sequence is unused.
func (s *SequenceStore) Current(name string) (int32, error) {
	var v int64
	err := s.db.QueryRow(`SELECT value FROM sequences WHERE name = ?`, name).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("current %s: %w", name, err)
	}
	return int32(v), nil
}
