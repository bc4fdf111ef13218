package providers

import (
	"context"

	"github.com/smartgarden/backend/internal/domain/entities"
)

// PlantSearchIndex keeps a searchable copy of plant names.
type PlantSearchIndex interface {
	// Index upserts a record into the index
	Index(ctx context.Context, record *entities.PlantRecord) error

	// Remove deletes a record from the index
	Remove(ctx context.Context, id string) error

	// Search returns matching record IDs for a user, best match first
	Search(ctx context.Context, userID, query string, limit int) ([]string, error)
}
