package cli

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/example/srsengine/internal/config"
	"github.com/example/srsengine/internal/database"
	"github.com/example/srsengine/internal/queue"
	"github.com/example/srsengine/internal/reminder"
	"github.com/example/srsengine/internal/review"
	"github.com/example/srsengine/internal/spaced_repetition"
	"github.com/example/srsengine/internal/stats"
)

// app is the set of services shared by the commands.
type app struct {
	cfg           *config.Config
	db            *sqlx.DB
	scheduler     *spaced_repetition.SM2
	cards         *database.CardRepository
	progress      *database.ProgressRepository
	statistics    *database.StatisticsRepository
	subscriptions *database.SubscriptionRepository

	coordinator *review.Coordinator
	selector    *queue.Selector
	aggregator  *stats.Aggregator
}

func newApp(cfg *config.Config) (*app, error) {
	sm, err := spaced_repetition.NewSM2(cfg.Scheduler)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler settings: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("database ready", "driver", db.DriverName())

	a := &app{
		cfg:           cfg,
		db:            db,
		scheduler:     sm,
		cards:         database.NewCardRepository(db),
		progress:      database.NewProgressRepository(db),
		statistics:    database.NewStatisticsRepository(db),
		subscriptions: database.NewSubscriptionRepository(db),
	}
	reviews := database.NewReviewRepository(db)
	a.coordinator = review.NewCoordinator(a.cards, a.progress, sm, nil)
	a.selector = queue.NewSelector(a.progress, sm, cfg.MaxNewPerSession, cfg.LearnAhead)
	a.aggregator = stats.NewAggregator(a.cards, a.statistics, a.progress, reviews, sm)
	return a, nil
}

// notifier picks Telegram when a token is configured and the log otherwise.
func (a *app) notifier() (reminder.Notifier, error) {
	if a.cfg.TelegramToken == "" {
		return reminder.LogNotifier{}, nil
	}
	return reminder.NewTelegramNotifier(a.cfg.TelegramToken)
}

func (a *app) reminderScheduler(n reminder.Notifier) *reminder.Scheduler {
	return reminder.New(a.subscriptions, a.statistics, n, a.cfg.NotificationStartHour, a.cfg.NotificationEndHour)
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
