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

// SubscriptionRepository handles reminder subscriptions
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository creates a new repository instance
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Get returns the user's subscription, or nil if they never subscribed.
func (r *SubscriptionRepository) Get(ctx context.Context, userID int64) (*models.ReminderSubscription, error) {
	var sub models.ReminderSubscription
	err := r.db.GetContext(ctx, &sub, r.db.Rebind(`SELECT * FROM reminder_subscriptions WHERE user_id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// Upsert creates or replaces the user's subscription
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *models.ReminderSubscription) error {
	now := dbTime(time.Now())
	sub.UpdatedAt = now
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO reminder_subscriptions (
			user_id, chat_id, enabled, notification_hour, created_at, updated_at
		) VALUES (
			:user_id, :chat_id, :enabled, :notification_hour, :created_at, :updated_at
		)
		ON CONFLICT (user_id) DO UPDATE SET
			chat_id = excluded.chat_id,
			enabled = excluded.enabled,
			notification_hour = excluded.notification_hour,
			updated_at = excluded.updated_at`, sub)
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// ListForHour returns enabled subscriptions whose notification hour is hour
func (r *SubscriptionRepository) ListForHour(ctx context.Context, hour int) ([]models.ReminderSubscription, error) {
	query := r.db.Rebind(`
		SELECT * FROM reminder_subscriptions
		WHERE enabled = ? AND notification_hour = ?
		ORDER BY user_id`)
	var subs []models.ReminderSubscription
	if err := r.db.SelectContext(ctx, &subs, query, true, hour); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
