package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/example/srsengine/internal/config"
)

// Connect opens the database described by cfg and initializes the schema.
func Connect(cfg *config.Config) (*sqlx.DB, error) {
	if cfg.DBType == "postgres" {
		return Open("postgres", cfg.DatabaseURL)
	}
	return OpenSQLite(cfg.DBPath)
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
func OpenSQLite(path string) (*sqlx.DB, error) {
	// Create data directory if it doesn't exist
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
	return Open("sqlite3", dsn)
}

// Open connects with the given driver ("sqlite3" or "postgres") and applies the schema.
func Open(driverName, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driverName == "sqlite3" {
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == "postgres" {
		schema = postgresSchema
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a unique-constraint failure from either driver.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cards (
	id TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	sub_category TEXT,
	order_index INTEGER NOT NULL DEFAULT 0,
	tags TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cards_order ON cards(order_index, id);
CREATE TABLE IF NOT EXISTS progress (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	card_id TEXT NOT NULL,
	card_state TEXT NOT NULL,
	ease_factor REAL NOT NULL,
	interval_days REAL NOT NULL DEFAULT 0,
	review_interval_days REAL NOT NULL DEFAULT 0,
	learning_step INTEGER NOT NULL DEFAULT 0,
	review_count INTEGER NOT NULL DEFAULT 0,
	lapse_count INTEGER NOT NULL DEFAULT 0,
	due_date TIMESTAMP,
	last_review_date TIMESTAMP,
	version INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	FOREIGN KEY (card_id) REFERENCES cards(id),
	UNIQUE(user_id, card_id)
);
CREATE INDEX IF NOT EXISTS idx_progress_due ON progress(user_id, card_state, due_date);
CREATE TABLE IF NOT EXISTS review_events (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	card_id TEXT NOT NULL,
	rating TEXT NOT NULL,
	response_time_ms INTEGER,
	previous TEXT NOT NULL,
	resulting TEXT NOT NULL,
	reviewed_at TIMESTAMP NOT NULL,
	FOREIGN KEY (card_id) REFERENCES cards(id)
);
CREATE INDEX IF NOT EXISTS idx_review_events_card ON review_events(user_id, card_id, reviewed_at);
CREATE TABLE IF NOT EXISTS reminder_subscriptions (
	user_id INTEGER PRIMARY KEY,
	chat_id INTEGER NOT NULL,
	enabled BOOLEAN NOT NULL DEFAULT 1,
	notification_hour INTEGER NOT NULL DEFAULT 9,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS cards (
	id TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	sub_category TEXT,
	order_index INTEGER NOT NULL DEFAULT 0,
	tags TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cards_order ON cards(order_index, id);
CREATE TABLE IF NOT EXISTS progress (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	card_id TEXT NOT NULL REFERENCES cards(id),
	card_state TEXT NOT NULL,
	ease_factor DOUBLE PRECISION NOT NULL,
	interval_days DOUBLE PRECISION NOT NULL DEFAULT 0,
	review_interval_days DOUBLE PRECISION NOT NULL DEFAULT 0,
	learning_step INTEGER NOT NULL DEFAULT 0,
	review_count INTEGER NOT NULL DEFAULT 0,
	lapse_count INTEGER NOT NULL DEFAULT 0,
	due_date TIMESTAMPTZ,
	last_review_date TIMESTAMPTZ,
	version BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE(user_id, card_id)
);
CREATE INDEX IF NOT EXISTS idx_progress_due ON progress(user_id, card_state, due_date);
CREATE TABLE IF NOT EXISTS review_events (
	id TEXT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	card_id TEXT NOT NULL REFERENCES cards(id),
	rating TEXT NOT NULL,
	response_time_ms BIGINT,
	previous TEXT NOT NULL,
	resulting TEXT NOT NULL,
	reviewed_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_review_events_card ON review_events(user_id, card_id, reviewed_at);
CREATE TABLE IF NOT EXISTS reminder_subscriptions (
	user_id BIGINT PRIMARY KEY,
	chat_id BIGINT NOT NULL,
	enabled BOOLEAN NOT NULL DEFAULT TRUE,
	notification_hour INTEGER NOT NULL DEFAULT 9,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)
`
