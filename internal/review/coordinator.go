// Package review applies ratings to stored progress.
//
// Each submission reads the stored progress, schedules it, and writes it back
// together with its ReviewEvent under an optimistic version check. Two
// submissions that start from the same version cannot both succeed; the loser
// gets models.ErrConflict and is expected to re-read. Nothing is retried here.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/srsengine/internal/catalog"
	"github.com/example/srsengine/internal/spaced_repetition"
	"github.com/example/srsengine/pkg/models"
)

// ProgressStore is the durable progress state the coordinator reads and writes.
type ProgressStore interface {
	// Get returns nil, nil when the user has no progress for the card.
	Get(ctx context.Context, userID int64, cardID string) (*models.Progress, error)
	SaveReview(ctx context.Context, progress *models.Progress, event *models.ReviewEvent) error
	Reset(ctx context.Context, progress *models.Progress, now time.Time) error
}

// ReviewResult is the outcome of a successful submission.
type ReviewResult struct {
	Progress            models.Progress
	Event               models.ReviewEvent
	NextReviewIntervals models.Intervals
}

// Coordinator runs review submissions and resets.
type Coordinator struct {
	cards     catalog.Lookup
	store     ProgressStore
	scheduler *spaced_repetition.SM2
	logger    *slog.Logger
}

// NewCoordinator creates a coordinator. A nil logger uses slog.Default().
func NewCoordinator(cards catalog.Lookup, store ProgressStore, scheduler *spaced_repetition.SM2, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{cards: cards, store: store, scheduler: scheduler, logger: logger}
}

// SubmitReview records rating for (userID, cardID) at now. responseTime is in
// milliseconds and may be nil.
func (c *Coordinator) SubmitReview(ctx context.Context, userID int64, cardID string, rating models.Rating, now time.Time, responseTime *int64) (ReviewResult, error) {
	if !rating.IsValid() {
		return ReviewResult{}, fmt.Errorf("%w: %q", models.ErrInvalidRating, rating)
	}
	now = now.UTC().Truncate(time.Second)

	if _, err := c.cards.GetCard(ctx, cardID); err != nil {
		return ReviewResult{}, err
	}

	current, err := c.load(ctx, userID, cardID)
	if err != nil {
		return ReviewResult{}, err
	}

	next, err := c.scheduler.ComputeNext(current, rating, now)
	if err != nil {
		return ReviewResult{}, err
	}

	event := models.ReviewEvent{
		ID:             uuid.NewString(),
		UserID:         userID,
		CardID:         cardID,
		Rating:         rating,
		ResponseTimeMs: responseTime,
		Previous:       current.Snapshot(),
		Resulting:      next.Snapshot(),
		ReviewedAt:     now,
	}
	if err := c.store.SaveReview(ctx, &next, &event); err != nil {
		return ReviewResult{}, err
	}

	c.logger.Debug("review recorded",
		"user_id", userID,
		"card_id", cardID,
		"rating", rating,
		"state", next.CardState,
		"interval_days", next.Interval,
	)
	return ReviewResult{
		Progress:            next,
		Event:               event,
		NextReviewIntervals: c.scheduler.PreviewIntervals(next),
	}, nil
}

// ResetProgress puts the card back to NEW for the user. No ReviewEvent is recorded.
func (c *Coordinator) ResetProgress(ctx context.Context, userID int64, cardID string, now time.Time) (models.Progress, error) {
	now = now.UTC().Truncate(time.Second)
	if _, err := c.cards.GetCard(ctx, cardID); err != nil {
		return models.Progress{}, err
	}

	progress, err := c.load(ctx, userID, cardID)
	if err != nil {
		return models.Progress{}, err
	}
	previous := progress.CardState
	progress.Reset()
	progress.EaseFactor = c.scheduler.Params().StartingEase

	if err := c.store.Reset(ctx, &progress, now); err != nil {
		return models.Progress{}, err
	}
	c.logger.Info("progress reset",
		"user_id", userID,
		"card_id", cardID,
		"previous_state", previous,
	)
	return progress, nil
}

// Preview returns the intervals each rating would produce for the user's current
// progress on the card, without changing anything.
func (c *Coordinator) Preview(ctx context.Context, userID int64, cardID string) (models.Intervals, error) {
	if _, err := c.cards.GetCard(ctx, cardID); err != nil {
		return models.Intervals{}, err
	}
	current, err := c.load(ctx, userID, cardID)
	if err != nil {
		return models.Intervals{}, err
	}
	return c.scheduler.PreviewIntervals(current), nil
}

// load returns the stored progress or the NEW defaults when none exists.
func (c *Coordinator) load(ctx context.Context, userID int64, cardID string) (models.Progress, error) {
	stored, err := c.store.Get(ctx, userID, cardID)
	if err != nil {
		return models.Progress{}, err
	}
	if stored == nil {
		return c.scheduler.NewProgress(userID, cardID), nil
	}
	return *stored, nil
}
