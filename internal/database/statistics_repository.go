package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/srsengine/pkg/models"
)

// StatisticsRepository runs aggregate queries over a user's progress rows
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// CountByState returns the user's progress counts folded into display states.
func (r *StatisticsRepository) CountByState(ctx context.Context, userID int64) (models.GeneralStats, error) {
	var rows []struct {
		CardState models.CardState `db:"card_state"`
		Count     int              `db:"count"`
	}
	query := r.db.Rebind(`
		SELECT card_state, COUNT(*) AS count
		FROM progress
		WHERE user_id = ?
		GROUP BY card_state`)
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return models.GeneralStats{}, fmt.Errorf("failed to count progress by state: %w", err)
	}

	var stats models.GeneralStats
	for _, row := range rows {
		stats.Add(row.CardState, row.Count)
	}
	return stats, nil
}

// CountByCategory returns per-category state counts for the user's progress rows.
func (r *StatisticsRepository) CountByCategory(ctx context.Context, userID int64) ([]CategoryCount, error) {
	query := r.db.Rebind(`
		SELECT c.category, p.card_state, COUNT(*) AS count
		FROM progress p
		JOIN cards c ON c.id = p.card_id
		WHERE p.user_id = ?
		GROUP BY c.category, p.card_state
		ORDER BY c.category, p.card_state`)
	var counts []CategoryCount
	if err := r.db.SelectContext(ctx, &counts, query, userID); err != nil {
		return nil, fmt.Errorf("failed to count progress by category: %w", err)
	}
	return counts, nil
}

// CountDue returns how many of the user's started cards are due at now.
func (r *StatisticsRepository) CountDue(ctx context.Context, userID int64, now time.Time) (int, error) {
	query := r.db.Rebind(`
		SELECT COUNT(*) FROM progress
		WHERE user_id = ? AND card_state <> ? AND due_date <= ?`)
	var n int
	if err := r.db.GetContext(ctx, &n, query, userID, models.StateNew, dbTime(now)); err != nil {
		return 0, fmt.Errorf("failed to count due cards: %w", err)
	}
	return n, nil
}
