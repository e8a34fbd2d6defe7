package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReviewEvent is one submitted rating. Events are append-only.
type ReviewEvent struct {
	ID             string           `json:"id" db:"id"`
	UserID         int64            `json:"userId" db:"user_id"`
	CardID         string           `json:"cardId" db:"card_id"`
	Rating         Rating           `json:"rating" db:"rating"`
	ResponseTimeMs *int64           `json:"responseTime" db:"response_time_ms"`
	Previous       ProgressSnapshot `json:"previous" db:"previous"`
	Resulting      ProgressSnapshot `json:"resulting" db:"resulting"`
	ReviewedAt     time.Time        `json:"reviewedAt" db:"reviewed_at"`
}

// ProgressSnapshot is the scheduling state before or after a review.
type ProgressSnapshot struct {
	CardState      CardState  `json:"cardState"`
	EaseFactor     float64    `json:"easeFactor"`
	Interval       float64    `json:"interval"`
	LearningStep   int        `json:"learningStep"`
	ReviewCount    int        `json:"reviewCount"`
	LapseCount     int        `json:"lapseCount"`
	DueDate        *time.Time `json:"dueDate"`
	LastReviewDate *time.Time `json:"lastReviewDate"`
}

// Value implements driver.Valuer; snapshots are stored as JSON text.
func (s ProgressSnapshot) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *ProgressSnapshot) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return json.Unmarshal([]byte(v), s)
	case []byte:
		return json.Unmarshal(v, s)
	case nil:
		*s = ProgressSnapshot{}
		return nil
	}
	return fmt.Errorf("unsupported snapshot column type %T", src)
}
