package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/srsengine/pkg/models"
)

// ReviewRepository reads the append-only review history.
// Events are written by ProgressRepository.SaveReview together with the progress row.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new repository instance
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// ListByCard returns the user's reviews of a card, oldest first.
func (r *ReviewRepository) ListByCard(ctx context.Context, userID int64, cardID string) ([]models.ReviewEvent, error) {
	query := r.db.Rebind(`
		SELECT id, user_id, card_id, rating, response_time_ms, previous, resulting, reviewed_at
		FROM review_events
		WHERE user_id = ? AND card_id = ?
		ORDER BY reviewed_at ASC, id ASC`)
	var events []models.ReviewEvent
	if err := r.db.SelectContext(ctx, &events, query, userID, cardID); err != nil {
		return nil, fmt.Errorf("failed to get review history: %w", err)
	}
	return events, nil
}

// Summary aggregates the user's review history of a card.
func (r *ReviewRepository) Summary(ctx context.Context, userID int64, cardID string) (ReviewSummary, error) {
	query := r.db.Rebind(`
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN rating <> ? THEN 1 ELSE 0 END), 0) AS recalled,
			AVG(response_time_ms) AS avg_response_ms
		FROM review_events
		WHERE user_id = ? AND card_id = ?`)
	var summary ReviewSummary
	if err := r.db.GetContext(ctx, &summary, query, models.RatingAgain, userID, cardID); err != nil {
		return ReviewSummary{}, fmt.Errorf("failed to summarize reviews: %w", err)
	}
	return summary, nil
}
