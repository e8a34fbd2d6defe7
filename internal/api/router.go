// Package api exposes the review engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/srsengine/internal/queue"
	"github.com/example/srsengine/internal/review"
	"github.com/example/srsengine/pkg/models"
)

// Reviewer applies ratings and resets.
type Reviewer interface {
	SubmitReview(ctx context.Context, userID int64, cardID string, rating models.Rating, now time.Time, responseTime *int64) (review.ReviewResult, error)
	ResetProgress(ctx context.Context, userID int64, cardID string, now time.Time) (models.Progress, error)
	Preview(ctx context.Context, userID int64, cardID string) (models.Intervals, error)
}

// DueLister builds the review queue.
type DueLister interface {
	DueCards(ctx context.Context, userID int64, opts queue.DueOptions, now time.Time) ([]models.DueCard, error)
}

// StatsProvider serves statistics and history.
type StatsProvider interface {
	GeneralStats(ctx context.Context, userID int64) (models.GeneralStats, error)
	CategoryStats(ctx context.Context, userID int64) ([]models.CategoryStats, error)
	CardStats(ctx context.Context, userID int64, cardID string) (models.CardStats, error)
	History(ctx context.Context, userID int64, cardID string) ([]models.ReviewEvent, error)
	Migrate(ctx context.Context, userID int64, now time.Time) (int, error)
}

// SubscriptionStore persists reminder subscriptions.
type SubscriptionStore interface {
	Get(ctx context.Context, userID int64) (*models.ReminderSubscription, error)
	Upsert(ctx context.Context, sub *models.ReminderSubscription) error
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	Reviews       Reviewer
	Queue         DueLister
	Stats         StatsProvider
	Subscriptions SubscriptionStore
	// Now returns the request time; defaults to time.Now.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// NewRouter builds the gin engine with every route mounted under /api/theory.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	SetupRoutes(r.Group("/api/theory"), h)
	return r
}

// SetupRoutes registers the engine routes on router.
func SetupRoutes(router *gin.RouterGroup, h *Handler) {
	router.Use(RequireUser())
	{
		router.GET("/cards/due", h.GetDueCards())
		router.POST("/cards/:id/review", h.SubmitReview())
		router.GET("/cards/:id/stats", h.GetCardStats())
		router.GET("/cards/:id/intervals", h.GetIntervals())
		router.GET("/cards/:id/history", h.GetHistory())
		router.POST("/cards/:id/reset", h.ResetCard())

		router.GET("/stats", h.GetGeneralStats())
		router.GET("/stats/categories", h.GetCategoryStats())
		router.POST("/migrate", h.Migrate())

		router.GET("/reminders", h.GetReminders())
		router.PUT("/reminders", h.PutReminders())
	}
}
