package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/srsengine/pkg/models"
)

// ProgressRepository handles database operations for per-user card progress.
// Writes use optimistic concurrency: a row is only updated when its stored version
// still matches the version that was read.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new repository instance
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Get returns progress for a specific user and card, or nil if the user never saw the card.
func (r *ProgressRepository) Get(ctx context.Context, userID int64, cardID string) (*models.Progress, error) {
	var progress models.Progress
	query := r.db.Rebind(`SELECT ` + progressColumns + ` FROM progress p WHERE p.user_id = ? AND p.card_id = ?`)
	err := r.db.GetContext(ctx, &progress, query, userID, cardID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &progress, nil
}

// SaveReview persists the scheduled progress and appends the review event in a single
// transaction. progress.Version must be the version that was read (0 when no row
// existed); on success it is advanced. models.ErrConflict is returned when another
// write got there first.
func (r *ProgressRepository) SaveReview(ctx context.Context, progress *models.Progress, event *models.ReviewEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.write(ctx, tx, progress, event.ReviewedAt); err != nil {
		return err
	}

	event.ReviewedAt = dbTime(event.ReviewedAt)
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO review_events (
			id, user_id, card_id, rating, response_time_ms, previous, resulting, reviewed_at
		) VALUES (
			:id, :user_id, :card_id, :rating, :response_time_ms, :previous, :resulting, :reviewed_at
		)`, event)
	if err != nil {
		return fmt.Errorf("failed to append review event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review: %w", err)
	}
	progress.Version++
	return nil
}

// Reset stores progress (already reinitialized by the caller) under the same version
// check as SaveReview, without touching the review history.
func (r *ProgressRepository) Reset(ctx context.Context, progress *models.Progress, now time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.write(ctx, tx, progress, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	progress.Version++
	return nil
}

// write inserts or conditionally updates one progress row inside tx.
func (r *ProgressRepository) write(ctx context.Context, tx *sqlx.Tx, progress *models.Progress, now time.Time) error {
	now = dbTime(now)
	progress.DueDate = dbTimePtr(progress.DueDate)
	progress.LastReviewDate = dbTimePtr(progress.LastReviewDate)
	progress.UpdatedAt = now

	if progress.Version == 0 {
		progress.CreatedAt = now
		query := tx.Rebind(`
			INSERT INTO progress (
				user_id, card_id, card_state, ease_factor, interval_days, review_interval_days,
				learning_step, review_count, lapse_count, due_date, last_review_date,
				version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
			RETURNING id`)
		err := tx.QueryRowxContext(ctx, query,
			progress.UserID,
			progress.CardID,
			progress.CardState,
			progress.EaseFactor,
			progress.Interval,
			progress.ReviewInterval,
			progress.LearningStep,
			progress.ReviewCount,
			progress.LapseCount,
			progress.DueDate,
			progress.LastReviewDate,
			progress.CreatedAt,
			progress.UpdatedAt,
		).Scan(&progress.ID)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: progress for card %s was created concurrently", models.ErrConflict, progress.CardID)
		}
		if err != nil {
			return fmt.Errorf("failed to create progress: %w", err)
		}
		return nil
	}

	result, err := tx.NamedExecContext(ctx, `
		UPDATE progress SET
			card_state = :card_state,
			ease_factor = :ease_factor,
			interval_days = :interval_days,
			review_interval_days = :review_interval_days,
			learning_step = :learning_step,
			review_count = :review_count,
			lapse_count = :lapse_count,
			due_date = :due_date,
			last_review_date = :last_review_date,
			version = version + 1,
			updated_at = :updated_at
		WHERE user_id = :user_id AND card_id = :card_id AND version = :version`, progress)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: progress for card %s changed since version %d",
			models.ErrConflict, progress.CardID, progress.Version)
	}
	return nil
}

// ListDue returns the user's progress rows in the given states that are due at or
// before dueBefore, joined with their catalog cards.
func (r *ProgressRepository) ListDue(ctx context.Context, userID int64, states []models.CardState, dueBefore time.Time) ([]DueRow, error) {
	if len(states) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT `+progressColumns+`, c.category, c.sub_category, c.order_index, c.tags
		FROM progress p
		JOIN cards c ON c.id = p.card_id
		WHERE p.user_id = ? AND p.card_state IN (?) AND p.due_date <= ?
		ORDER BY p.due_date ASC`, userID, states, dbTime(dueBefore))
	if err != nil {
		return nil, fmt.Errorf("failed to build due query: %w", err)
	}

	var rows []DueRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get due progress: %w", err)
	}
	return rows, nil
}

// ListNewCards returns up to limit catalog cards the user has never reviewed, in
// catalog order. Cards with a stored NEW row (lazily created or reset) are included.
func (r *ProgressRepository) ListNewCards(ctx context.Context, userID int64, limit int) ([]models.Card, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := r.db.Rebind(`
		SELECT c.id, c.category, c.sub_category, c.order_index, c.tags, c.created_at, c.updated_at
		FROM cards c
		LEFT JOIN progress p ON p.card_id = c.id AND p.user_id = ?
		WHERE p.id IS NULL OR (p.card_state = ? AND p.review_count = 0)
		ORDER BY c.order_index ASC, c.id ASC
		LIMIT ?`)
	var cards []models.Card
	if err := r.db.SelectContext(ctx, &cards, query, userID, models.StateNew, limit); err != nil {
		return nil, fmt.Errorf("failed to get new cards: %w", err)
	}
	return cards, nil
}

// CreateMissing creates a NEW progress row for every catalog card the user has no row
// for and returns how many were created.
func (r *ProgressRepository) CreateMissing(ctx context.Context, userID int64, ease float64, now time.Time) (int, error) {
	var missing []string
	err := r.db.SelectContext(ctx, &missing, r.db.Rebind(`
		SELECT c.id FROM cards c
		WHERE NOT EXISTS (SELECT 1 FROM progress p WHERE p.user_id = ? AND p.card_id = c.id)
		ORDER BY c.order_index, c.id`), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to find cards without progress: %w", err)
	}
	if len(missing) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	created := 0
	for _, cardID := range missing {
		p := models.NewProgress(userID, cardID)
		p.EaseFactor = ease
		err := r.write(ctx, tx, &p, now)
		if errors.Is(err, models.ErrConflict) {
			// created by a concurrent request; nothing to do
			continue
		}
		if err != nil {
			return 0, err
		}
		created++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit migration: %w", err)
	}
	return created, nil
}
