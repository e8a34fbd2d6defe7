package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/srsengine/internal/queue"
	"github.com/example/srsengine/pkg/models"
)

type reviewRequest struct {
	Rating       string `json:"rating" binding:"required"`
	ResponseTime *int64 `json:"responseTime" binding:"omitempty,gte=0"` // milliseconds
}

type reviewResponse struct {
	UserID              int64            `json:"userId"`
	CardID              string           `json:"cardId"`
	NewInterval         float64          `json:"newInterval"`
	NewDueDate          *time.Time       `json:"newDueDate"`
	EaseFactor          float64          `json:"easeFactor"`
	CardState           models.CardState `json:"cardState"`
	ReviewCount         int              `json:"reviewCount"`
	LapseCount          int              `json:"lapseCount"`
	NextReviewIntervals models.Intervals `json:"nextReviewIntervals"`
}

type dueQuery struct {
	Limit           int  `form:"limit,default=20" binding:"gte=0,lte=500"`
	IncludeNew      bool `form:"includeNew,default=true"`
	IncludeLearning bool `form:"includeLearning,default=true"`
	IncludeReview   bool `form:"includeReview,default=true"`
}

type reminderRequest struct {
	ChatID           int64 `json:"chatId" binding:"required"`
	Enabled          *bool `json:"enabled"`
	NotificationHour *int  `json:"notificationHour" binding:"omitempty,gte=0,lte=23"`
}

const defaultNotificationHour = 9

func cardID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card id is required"})
		return "", false
	}
	return id, true
}

// SubmitReview records a rating for the card.
func (h *Handler) SubmitReview() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := cardID(c)
		if !ok {
			return
		}
		var body reviewRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid review payload: " + err.Error()})
			return
		}
		rating, err := models.ParseRating(body.Rating)
		if err != nil {
			respondError(c, err)
			return
		}

		userID := getUserID(c)
		res, err := h.Reviews.SubmitReview(c.Request.Context(), userID, id, rating, h.now(), body.ResponseTime)
		if err != nil {
			respondError(c, err)
			return
		}
		p := res.Progress
		c.JSON(http.StatusOK, reviewResponse{
			UserID:              userID,
			CardID:              id,
			NewInterval:         p.Interval,
			NewDueDate:          p.DueDate,
			EaseFactor:          p.EaseFactor,
			CardState:           p.CardState,
			ReviewCount:         p.ReviewCount,
			LapseCount:          p.LapseCount,
			NextReviewIntervals: res.NextReviewIntervals,
		})
	}
}

// GetDueCards returns the prioritized review queue.
func (h *Handler) GetDueCards() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q dueQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
			return
		}
		cards, err := h.Queue.DueCards(c.Request.Context(), getUserID(c), queue.DueOptions{
			Limit:           q.Limit,
			IncludeNew:      q.IncludeNew,
			IncludeLearning: q.IncludeLearning,
			IncludeReview:   q.IncludeReview,
		}, h.now())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cards)
	}
}

// GetCardStats returns per-card diagnostics.
func (h *Handler) GetCardStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := cardID(c)
		if !ok {
			return
		}
		stats, err := h.Stats.CardStats(c.Request.Context(), getUserID(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// GetIntervals previews the interval each rating would produce.
func (h *Handler) GetIntervals() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := cardID(c)
		if !ok {
			return
		}
		intervals, err := h.Reviews.Preview(c.Request.Context(), getUserID(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, intervals)
	}
}

// GetHistory lists the user's reviews of the card.
func (h *Handler) GetHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := cardID(c)
		if !ok {
			return
		}
		events, err := h.Stats.History(c.Request.Context(), getUserID(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

// ResetCard puts the card back to NEW.
func (h *Handler) ResetCard() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := cardID(c)
		if !ok {
			return
		}
		if _, err := h.Reviews.ResetProgress(c.Request.Context(), getUserID(c), id, h.now()); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Card progress reset successfully"})
	}
}

// GetGeneralStats returns the user's counts by state.
func (h *Handler) GetGeneralStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := h.Stats.GeneralStats(c.Request.Context(), getUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// GetCategoryStats returns the user's counts per category.
func (h *Handler) GetCategoryStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := h.Stats.CategoryStats(c.Request.Context(), getUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// Migrate creates NEW progress rows for every catalog card.
func (h *Handler) Migrate() gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := h.Stats.Migrate(c.Request.Context(), getUserID(c), h.now())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":       "Progress migrated successfully",
			"migratedCount": n,
		})
	}
}

// GetReminders returns the user's reminder subscription.
func (h *Handler) GetReminders() gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := h.Subscriptions.Get(c.Request.Context(), getUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		if sub == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no reminder subscription"})
			return
		}
		c.JSON(http.StatusOK, sub)
	}
}

// PutReminders creates or updates the user's reminder subscription.
func (h *Handler) PutReminders() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body reminderRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reminder payload: " + err.Error()})
			return
		}
		userID := getUserID(c)
		sub, err := h.Subscriptions.Get(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		if sub == nil {
			sub = &models.ReminderSubscription{UserID: userID, Enabled: true, NotificationHour: defaultNotificationHour}
		}
		sub.ChatID = body.ChatID
		if body.Enabled != nil {
			sub.Enabled = *body.Enabled
		}
		if body.NotificationHour != nil {
			sub.NotificationHour = *body.NotificationHour
		}
		if err := h.Subscriptions.Upsert(c.Request.Context(), sub); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sub)
	}
}
