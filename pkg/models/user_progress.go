package models

import (
	"fmt"
	"math"
	"time"
)

// CardState is the scheduling phase of a card for one user.
type CardState string

const (
	StateNew        CardState = "NEW"
	StateLearning   CardState = "LEARNING"
	StateReview     CardState = "REVIEW"
	StateRelearning CardState = "RELEARNING"
)

// IsValid reports whether s is a known card state.
func (s CardState) IsValid() bool {
	switch s {
	case StateNew, StateLearning, StateReview, StateRelearning:
		return true
	}
	return false
}

// Ease factor bounds and the starting value for new cards.
const (
	MinEaseFactor     = 1.3
	MaxEaseFactor     = 2.5
	DefaultEaseFactor = 2.5
)

// Progress tracks a user's scheduling state for a specific card
type Progress struct {
	ID             int64      `json:"id" db:"id"`
	UserID         int64      `json:"userId" db:"user_id"`
	CardID         string     `json:"cardId" db:"card_id"`
	CardState      CardState  `json:"cardState" db:"card_state"`
	EaseFactor     float64    `json:"easeFactor" db:"ease_factor"`
	Interval       float64    `json:"interval" db:"interval_days"`     // Days; 0 means due immediately
	ReviewInterval float64    `json:"-" db:"review_interval_days"`     // Interval last held in REVIEW
	LearningStep   int        `json:"learningStep" db:"learning_step"` // Index into the active ladder
	ReviewCount    int        `json:"reviewCount" db:"review_count"`
	LapseCount     int        `json:"lapseCount" db:"lapse_count"`
	DueDate        *time.Time `json:"dueDate" db:"due_date"` // nil while NEW and never reviewed
	LastReviewDate *time.Time `json:"lastReviewDate" db:"last_review_date"`
	Version        int64      `json:"-" db:"version"` // 0 means not yet stored
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

// NewProgress returns the NEW defaults for a card the user has not reviewed yet.
func NewProgress(userID int64, cardID string) Progress {
	return Progress{
		UserID:     userID,
		CardID:     cardID,
		CardState:  StateNew,
		EaseFactor: DefaultEaseFactor,
	}
}

// Reset reinitializes the scheduling fields to the NEW defaults, keeping identity and version.
func (p *Progress) Reset() {
	fresh := NewProgress(p.UserID, p.CardID)
	fresh.ID = p.ID
	fresh.Version = p.Version
	fresh.CreatedAt = p.CreatedAt
	fresh.UpdatedAt = p.UpdatedAt
	*p = fresh
}

// Validate checks the data model invariants.
func (p Progress) Validate() error {
	if !p.CardState.IsValid() {
		return fmt.Errorf("%w: unknown card state %q", ErrValidation, p.CardState)
	}
	if math.IsNaN(p.EaseFactor) || p.EaseFactor < MinEaseFactor || p.EaseFactor > MaxEaseFactor {
		return fmt.Errorf("%w: ease factor %v outside [%v, %v]", ErrValidation, p.EaseFactor, MinEaseFactor, MaxEaseFactor)
	}
	if math.IsNaN(p.Interval) || math.IsInf(p.Interval, 0) || p.Interval < 0 {
		return fmt.Errorf("%w: interval %v", ErrValidation, p.Interval)
	}
	if p.LearningStep < 0 || p.ReviewCount < 0 || p.LapseCount < 0 {
		return fmt.Errorf("%w: negative counter", ErrValidation)
	}
	if p.DueDate == nil && p.CardState != StateNew {
		return fmt.Errorf("%w: %s card without due date", ErrValidation, p.CardState)
	}
	return nil
}

// Snapshot captures the scheduling fields for the review history.
func (p Progress) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{
		CardState:      p.CardState,
		EaseFactor:     p.EaseFactor,
		Interval:       p.Interval,
		LearningStep:   p.LearningStep,
		ReviewCount:    p.ReviewCount,
		LapseCount:     p.LapseCount,
		DueDate:        p.DueDate,
		LastReviewDate: p.LastReviewDate,
	}
}
