// Package reminder periodically tells subscribed users how many cards are due.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/srsengine/pkg/models"
)

// Default notification window, inclusive, in UTC hours
const (
	DefaultNotificationStartHour = 4
	DefaultNotificationEndHour   = 18
)

// Notifier delivers a reminder to one subscriber
type Notifier interface {
	SendReminder(ctx context.Context, sub models.ReminderSubscription, dueCount int) error
}

// Subscriptions lists who should be reminded at a given hour
type Subscriptions interface {
	ListForHour(ctx context.Context, hour int) ([]models.ReminderSubscription, error)
}

// DueCounter counts a user's due cards
type DueCounter interface {
	CountDue(ctx context.Context, userID int64, now time.Time) (int, error)
}

// Scheduler manages the hourly reminder job
type Scheduler struct {
	cron      *gocron.Scheduler
	subs      Subscriptions
	due       DueCounter
	notifier  Notifier
	startHour int
	endHour   int
	logger    *slog.Logger
}

// New creates a new scheduler. Hours outside 0-23 fall back to the defaults.
func New(subs Subscriptions, due DueCounter, notifier Notifier, startHour, endHour int) *Scheduler {
	if startHour < 0 || startHour > 23 {
		startHour = DefaultNotificationStartHour
	}
	if endHour < 0 || endHour > 23 {
		endHour = DefaultNotificationEndHour
	}
	return &Scheduler{
		cron:      gocron.NewScheduler(time.UTC),
		subs:      subs,
		due:       due,
		notifier:  notifier,
		startHour: startHour,
		endHour:   endHour,
		logger:    slog.Default().With("component", "reminder"),
	}
}

// Start schedules the hourly check and runs it in the background
func (s *Scheduler) Start() error {
	_, err := s.cron.Every(1).Hour().Do(func() {
		if _, err := s.RunOnce(context.Background(), time.Now()); err != nil {
			s.logger.Error("reminder run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	s.cron.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// InWindow reports whether hour lies in the notification window.
// A window whose start is after its end wraps past midnight.
func (s *Scheduler) InWindow(hour int) bool {
	if s.startHour <= s.endHour {
		return hour >= s.startHour && hour <= s.endHour
	}
	return hour >= s.startHour || hour <= s.endHour
}

// RunOnce reminds every subscriber whose notification hour is the current UTC
// hour and who has due cards. It returns how many reminders were sent.
// Delivery failures are logged and do not stop the run.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	hour := now.Hour()
	if !s.InWindow(hour) {
		s.logger.Info("outside notification hours, skipping reminders",
			"hour", hour, "start", s.startHour, "end", s.endHour)
		return 0, nil
	}

	subs, err := s.subs.ListForHour(ctx, hour)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, sub := range subs {
		count, err := s.due.CountDue(ctx, sub.UserID, now)
		if err != nil {
			s.logger.Error("failed to count due cards", "user_id", sub.UserID, "error", err)
			continue
		}
		if count == 0 {
			continue
		}
		if err := s.notifier.SendReminder(ctx, sub, count); err != nil {
			s.logger.Error("failed to send reminder", "user_id", sub.UserID, "error", err)
			continue
		}
		sent++
	}
	s.logger.Info("reminders sent", "hour", hour, "subscribers", len(subs), "sent", sent)
	return sent, nil
}
