package models

import "time"

// ReminderSubscription describes where and when a user wants due-card reminders
type ReminderSubscription struct {
	UserID           int64     `json:"userId" db:"user_id"`
	ChatID           int64     `json:"chatId" db:"chat_id"`                     // Telegram chat to notify
	Enabled          bool      `json:"enabled" db:"enabled"`
	NotificationHour int       `json:"notificationHour" db:"notification_hour"` // Hour of day (0-23, UTC)
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}
