package repositories

import (
	"context"

	"github.com/smartgarden/backend/internal/domain/entities"
)

// PlantRepository defines the interface for plant record storage
type PlantRepository interface {
	// Create persists a record whose ID has already been assigned
	Create(ctx context.Context, record *entities.PlantRecord) error

	// GetByID retrieves a record by ID
	GetByID(ctx context.Context, id string) (*entities.PlantRecord, error)

	// ListByUser retrieves a user's records in insertion order
	ListByUser(ctx context.Context, userID string) ([]*entities.PlantRecord, error)

	// Update overwrites the mutable columns of an existing record
	Update(ctx context.Context, record *entities.PlantRecord) error

	// Delete removes a record; it reports whether a row was removed
	Delete(ctx context.Context, id string) (bool, error)
}
