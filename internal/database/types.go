package database

import (
	"time"

	"github.com/example/srsengine/pkg/models"
)

// DueRow is a progress row joined with its catalog card.
type DueRow struct {
	models.Progress
	Category    string      `db:"category"`
	SubCategory *string     `db:"sub_category"`
	OrderIndex  int         `db:"order_index"`
	Tags        models.Tags `db:"tags"`
}

// CategoryCount is one (category, state) bucket of a user's progress rows.
type CategoryCount struct {
	Category  string           `db:"category"`
	CardState models.CardState `db:"card_state"`
	Count     int              `db:"count"`
}

// ReviewSummary aggregates the review history of one (user, card) pair.
type ReviewSummary struct {
	Total               int      `db:"total"`
	Recalled            int      `db:"recalled"`
	AverageResponseTime *float64 `db:"avg_response_ms"`
}

// dbTime normalizes timestamps before they are written or compared: SQLite stores
// times as text, so every value must share one zone and precision.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func dbTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := dbTime(*t)
	return &v
}

const progressColumns = `p.id, p.user_id, p.card_id, p.card_state, p.ease_factor, p.interval_days,
	p.review_interval_days, p.learning_step, p.review_count, p.lapse_count, p.due_date,
	p.last_review_date, p.version, p.created_at, p.updated_at`
