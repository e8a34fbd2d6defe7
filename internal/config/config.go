package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/example/srsengine/internal/reminder"
	"github.com/example/srsengine/internal/spaced_repetition"
)

// Config represents the configuration for the engine
type Config struct {
	// Database driver: "sqlite" or "postgres"
	DBType string
	// SQLite file path
	DBPath string
	// Postgres connection string
	DatabaseURL string
	// Address the HTTP API listens on
	HTTPAddr string
	// Upper bound on NEW cards per due-queue request
	MaxNewPerSession int
	// LEARNING/RELEARNING cards due this far ahead still count as due
	LearnAhead time.Duration
	// Scheduler constants
	Scheduler spaced_repetition.Params

	// Reminder settings
	TelegramToken         string
	RemindersEnabled      bool
	NotificationStartHour int
	NotificationEndHour   int
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() *Config {
	return &Config{
		DBType:                "sqlite",
		DBPath:                "data/srs.db",
		HTTPAddr:              ":8080",
		MaxNewPerSession:      20,
		Scheduler:             spaced_repetition.DefaultParams(),
		NotificationStartHour: reminder.DefaultNotificationStartHour,
		NotificationEndHour:   reminder.DefaultNotificationEndHour,
	}
}

// Load builds the configuration from an optional .env file and the environment.
// When SCHEDULER_CONFIG names a YAML file, its values override the scheduler defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()
	if v := os.Getenv("DB_TYPE"); v != "" {
		cfg.DBType = strings.ToLower(v)
	}
	if cfg.DBType != "sqlite" && cfg.DBType != "postgres" {
		return nil, fmt.Errorf("unsupported DB_TYPE %q", cfg.DBType)
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DBType == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when DB_TYPE=postgres")
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}

	var err error
	if cfg.MaxNewPerSession, err = intEnv("MAX_NEW_PER_SESSION", cfg.MaxNewPerSession); err != nil {
		return nil, err
	}
	minutes, err := intEnv("LEARN_AHEAD_MINUTES", 0)
	if err != nil {
		return nil, err
	}
	cfg.LearnAhead = time.Duration(minutes) * time.Minute

	if path := os.Getenv("SCHEDULER_CONFIG"); path != "" {
		if cfg.Scheduler, err = LoadSchedulerParams(path); err != nil {
			return nil, err
		}
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.RemindersEnabled = os.Getenv("ENABLE_REMINDERS") != "false"
	cfg.NotificationStartHour = hourEnv("NOTIFICATION_START_HOUR", cfg.NotificationStartHour)
	cfg.NotificationEndHour = hourEnv("NOTIFICATION_END_HOUR", cfg.NotificationEndHour)

	return cfg, nil
}

// LoadSchedulerParams reads scheduler constants from a YAML file. Keys that are
// absent keep their default values.
func LoadSchedulerParams(path string) (spaced_repetition.Params, error) {
	params := spaced_repetition.DefaultParams()
	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("failed to read scheduler config: %w", err)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("failed to parse scheduler config %s: %w", path, err)
	}
	return params, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

// hourEnv keeps def for values that are not an hour of day.
func hourEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
		return h
	}
	slog.Warn("ignoring invalid hour", "key", key, "value", v)
	return def
}
