// Package stats computes per-user and per-card learning statistics.
package stats

import (
	"context"
	"time"

	"github.com/example/srsengine/internal/catalog"
	"github.com/example/srsengine/internal/database"
	"github.com/example/srsengine/internal/spaced_repetition"
	"github.com/example/srsengine/pkg/models"
)

// Counter runs the aggregate queries.
type Counter interface {
	CountByState(ctx context.Context, userID int64) (models.GeneralStats, error)
	CountByCategory(ctx context.Context, userID int64) ([]database.CategoryCount, error)
}

// ProgressReader reads and bulk-creates progress rows.
type ProgressReader interface {
	Get(ctx context.Context, userID int64, cardID string) (*models.Progress, error)
	CreateMissing(ctx context.Context, userID int64, ease float64, now time.Time) (int, error)
}

// History reads the review history.
type History interface {
	ListByCard(ctx context.Context, userID int64, cardID string) ([]models.ReviewEvent, error)
	Summary(ctx context.Context, userID int64, cardID string) (database.ReviewSummary, error)
}

// Aggregator serves the statistics views.
type Aggregator struct {
	cards     catalog.Lookup
	counter   Counter
	progress  ProgressReader
	history   History
	scheduler *spaced_repetition.SM2
}

// NewAggregator creates a new aggregator
func NewAggregator(cards catalog.Lookup, counter Counter, progress ProgressReader, history History, scheduler *spaced_repetition.SM2) *Aggregator {
	return &Aggregator{
		cards:     cards,
		counter:   counter,
		progress:  progress,
		history:   history,
		scheduler: scheduler,
	}
}

// GeneralStats counts the user's progress rows by state. RELEARNING is
// reported as learning; Total is always New+Learning+Review.
func (a *Aggregator) GeneralStats(ctx context.Context, userID int64) (models.GeneralStats, error) {
	return a.counter.CountByState(ctx, userID)
}

// CategoryStats returns GeneralStats per catalog category, sorted by category.
func (a *Aggregator) CategoryStats(ctx context.Context, userID int64) ([]models.CategoryStats, error) {
	counts, err := a.counter.CountByCategory(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.CategoryStats, 0)
	for _, c := range counts {
		if len(out) == 0 || out[len(out)-1].Category != c.Category {
			out = append(out, models.CategoryStats{Category: c.Category})
		}
		out[len(out)-1].Add(c.CardState, c.Count)
	}
	return out, nil
}

// CardStats returns diagnostics for one card. A card the user never reviewed
// reports the NEW defaults.
func (a *Aggregator) CardStats(ctx context.Context, userID int64, cardID string) (models.CardStats, error) {
	if _, err := a.cards.GetCard(ctx, cardID); err != nil {
		return models.CardStats{}, err
	}

	stored, err := a.progress.Get(ctx, userID, cardID)
	if err != nil {
		return models.CardStats{}, err
	}
	p := a.scheduler.NewProgress(userID, cardID)
	if stored != nil {
		p = *stored
	}

	summary, err := a.history.Summary(ctx, userID, cardID)
	if err != nil {
		return models.CardStats{}, err
	}
	var retention float64
	if summary.Total > 0 {
		retention = float64(summary.Recalled) / float64(summary.Total)
	}

	return models.CardStats{
		CardID:              cardID,
		UserID:              userID,
		TotalReviews:        p.ReviewCount,
		LapseCount:          p.LapseCount,
		EaseFactor:          p.EaseFactor,
		CurrentInterval:     p.Interval,
		CardState:           p.CardState,
		DueDate:             p.DueDate,
		LastReviewDate:      p.LastReviewDate,
		AverageResponseTime: summary.AverageResponseTime,
		RetentionRate:       retention,
		NextReviewIntervals: a.scheduler.PreviewIntervals(p),
	}, nil
}

// History returns the user's reviews of a card, oldest first.
func (a *Aggregator) History(ctx context.Context, userID int64, cardID string) ([]models.ReviewEvent, error) {
	if _, err := a.cards.GetCard(ctx, cardID); err != nil {
		return nil, err
	}
	events, err := a.history.ListByCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = make([]models.ReviewEvent, 0)
	}
	return events, nil
}

// Migrate creates NEW progress rows for every catalog card the user has none
// for and returns how many were created.
func (a *Aggregator) Migrate(ctx context.Context, userID int64, now time.Time) (int, error) {
	return a.progress.CreateMissing(ctx, userID, a.scheduler.Params().StartingEase, now)
}
