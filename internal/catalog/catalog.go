// Package catalog gives the engine read access to the card catalog and loads
// catalog files into the store.
package catalog

import (
	"context"

	"github.com/example/srsengine/pkg/models"
)

// Lookup resolves card ids against the catalog.
// GetCard returns an error wrapping models.ErrNotFound for unknown ids.
type Lookup interface {
	GetCard(ctx context.Context, id string) (*models.Card, error)
}

// Store is the catalog persistence used by the importer.
type Store interface {
	Upsert(ctx context.Context, card *models.Card) (bool, error)
}
