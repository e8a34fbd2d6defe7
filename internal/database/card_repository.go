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

// CardRepository handles database operations for the card catalog
type CardRepository struct {
	db *sqlx.DB
}

// NewCardRepository creates a new repository instance
func NewCardRepository(db *sqlx.DB) *CardRepository {
	return &CardRepository{db: db}
}

// GetCard returns the catalog card with the given id, or models.ErrNotFound.
func (r *CardRepository) GetCard(ctx context.Context, id string) (*models.Card, error) {
	var card models.Card
	err := r.db.GetContext(ctx, &card, r.db.Rebind("SELECT * FROM cards WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

// GetAll returns all cards in catalog order
func (r *CardRepository) GetAll(ctx context.Context) ([]models.Card, error) {
	var cards []models.Card
	err := r.db.SelectContext(ctx, &cards, "SELECT * FROM cards ORDER BY order_index, id")
	if err != nil {
		return nil, fmt.Errorf("failed to get cards: %w", err)
	}
	return cards, nil
}

// Upsert inserts card or updates the existing row with the same id.
// It reports whether a new row was created.
func (r *CardRepository) Upsert(ctx context.Context, card *models.Card) (bool, error) {
	now := dbTime(time.Now())
	if card.Tags == nil {
		card.Tags = models.Tags{}
	}
	card.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var createdAt time.Time
	err = tx.GetContext(ctx, &createdAt, tx.Rebind("SELECT created_at FROM cards WHERE id = ?"), card.ID)
	created := errors.Is(err, sql.ErrNoRows)
	switch {
	case created:
		card.CreatedAt = now
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO cards (id, category, sub_category, order_index, tags, created_at, updated_at)
			VALUES (:id, :category, :sub_category, :order_index, :tags, :created_at, :updated_at)`,
			card)
	case err != nil:
		return false, fmt.Errorf("failed to look up card: %w", err)
	default:
		card.CreatedAt = createdAt
		_, err = tx.NamedExecContext(ctx, `
			UPDATE cards SET
				category = :category,
				sub_category = :sub_category,
				order_index = :order_index,
				tags = :tags,
				updated_at = :updated_at
			WHERE id = :id`,
			card)
	}
	if err != nil {
		return false, fmt.Errorf("failed to save card %s: %w", card.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit card: %w", err)
	}
	return created, nil
}

// Count returns the number of cards in the catalog
func (r *CardRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM cards"); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}
