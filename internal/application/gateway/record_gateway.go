package gateway

import (
	"context"
	"strings"

	"github.com/smartgarden/backend/internal/domain/entities"
	"github.com/smartgarden/backend/internal/infrastructure/observability"
	apperrors "github.com/smartgarden/backend/pkg/errors"
)

// Store is the record API as seen from the client
type Store interface {
	Refresh(ctx context.Context, refreshToken string) (*entities.TokenPair, error)
	CreatePlant(ctx context.Context, token string, record *entities.PlantRecord) (*entities.PlantRecord, error)
	ListPlants(ctx context.Context, token, userID string) ([]*entities.PlantRecord, error)
	GetPlant(ctx context.Context, token, userID, id string) (*entities.PlantRecord, error)
	SearchPlants(ctx context.Context, token, userID, query string) ([]*entities.PlantRecord, error)
	UpdatePlant(ctx context.Context, token, id string, update entities.PlantUpdate) (*entities.PlantRecord, error)
	DeletePlant(ctx context.Context, token, id string) error
}

// RecordGateway submits and reads records for the signed-in user. Local session state
// changes only after the store has confirmed a write.
type RecordGateway struct {
	store     Store
	session   *Session
	reminders *Reminders
}

// NewRecordGateway creates a gateway. reminders may be nil.
func NewRecordGateway(store Store, session *Session, reminders *Reminders) *RecordGateway {
	return &RecordGateway{store: store, session: session, reminders: reminders}
}

// Submit creates a record and caches it as the current plant
func (g *RecordGateway) Submit(ctx context.Context, record *entities.PlantRecord) (*entities.PlantRecord, error) {
	if err := canSubmit(record); err != nil {
		return nil, err
	}

	var created *entities.PlantRecord
	err := g.withAuth(ctx, func(creds Credentials) error {
		record.UserID = creds.UserID
		var err error
		created, err = g.store.CreatePlant(ctx, creds.AccessToken, record)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := g.session.SetCurrentPlant(ctx, created); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to cache current plant")
	}
	return created, nil
}

// List returns the user's records in insertion order
func (g *RecordGateway) List(ctx context.Context) ([]*entities.PlantRecord, error) {
	var records []*entities.PlantRecord
	err := g.withAuth(ctx, func(creds Credentials) error {
		var err error
		records, err = g.store.ListPlants(ctx, creds.AccessToken, creds.UserID)
		return err
	})
	return records, err
}

// Search returns records whose names match query
func (g *RecordGateway) Search(ctx context.Context, query string) ([]*entities.PlantRecord, error) {
	var records []*entities.PlantRecord
	err := g.withAuth(ctx, func(creds Credentials) error {
		var err error
		records, err = g.store.SearchPlants(ctx, creds.AccessToken, creds.UserID, query)
		return err
	})
	return records, err
}

// Get fetches a record from the store
func (g *RecordGateway) Get(ctx context.Context, id string) (*entities.PlantRecord, error) {
	var record *entities.PlantRecord
	err := g.withAuth(ctx, func(creds Credentials) error {
		var err error
		record, err = g.store.GetPlant(ctx, creds.AccessToken, creds.UserID, id)
		return err
	})
	return record, err
}

// View resolves the record to display. An explicit id always wins; the cached current
// plant is used only when no id is given, and is refreshed from the store when reachable.
func (g *RecordGateway) View(ctx context.Context, id string) (*entities.PlantRecord, error) {
	id = strings.TrimSpace(id)
	if id != "" {
		record, err := g.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := g.session.SetCurrentPlant(ctx, record); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to cache current plant")
		}
		return record, nil
	}

	current, ok, err := g.session.CurrentPlant(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewValidationError("no plant selected")
	}

	fresh, err := g.Get(ctx, current.ID)
	switch {
	case err == nil:
		if err := g.session.SetCurrentPlant(ctx, fresh); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to cache current plant")
		}
		return fresh, nil
	case apperrors.IsType(err, apperrors.ErrorTypeExternal):
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("store unreachable, showing cached plant")
		return current, nil
	default:
		return nil, err
	}
}

// Update applies a partial update; the cached current plant follows the store's answer
func (g *RecordGateway) Update(ctx context.Context, id string, update entities.PlantUpdate) (*entities.PlantRecord, error) {
	var updated *entities.PlantRecord
	err := g.withAuth(ctx, func(creds Credentials) error {
		var err error
		updated, err = g.store.UpdatePlant(ctx, creds.AccessToken, id, update)
		return err
	})
	if err != nil {
		return nil, err
	}

	if current, ok, err := g.session.CurrentPlant(ctx); err == nil && ok && current.ID == id {
		if err := g.session.SetCurrentPlant(ctx, updated); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to cache current plant")
		}
	}
	return updated, nil
}

// Delete removes a record, then its reminders and any cached snapshot of it
func (g *RecordGateway) Delete(ctx context.Context, id string) error {
	err := g.withAuth(ctx, func(creds Credentials) error {
		return g.store.DeletePlant(ctx, creds.AccessToken, id)
	})
	if err != nil {
		return err
	}

	if g.reminders != nil {
		if err := g.reminders.CancelForPlant(ctx, id); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("plant_id", id).Msg("failed to cancel reminders")
		}
	}
	return g.session.clearCurrentPlantIf(ctx, id)
}

// withAuth runs fn with stored credentials, refreshing them once if the store rejects the token
func (g *RecordGateway) withAuth(ctx context.Context, fn func(Credentials) error) error {
	creds, err := g.session.Credentials(ctx)
	if err != nil {
		return err
	}

	err = fn(creds)
	if !apperrors.IsType(err, apperrors.ErrorTypeAuthRequired) || creds.RefreshToken == "" {
		return err
	}

	pair, refreshErr := g.store.Refresh(ctx, creds.RefreshToken)
	if refreshErr != nil {
		observability.LoggerFromContext(ctx).Debug().Err(refreshErr).Msg("token refresh failed")
		return err
	}
	if err := g.session.SaveCredentials(ctx, pair); err != nil {
		return err
	}

	return fn(Credentials{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, UserID: pair.UserID})
}
