package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smartgarden/backend/internal/domain/entities"
	"github.com/smartgarden/backend/internal/domain/providers"
	apperrors "github.com/smartgarden/backend/pkg/errors"
)

// Session is the typed view over the client's durable key-value store
type Session struct {
	store providers.SessionStore
}

// NewSession wraps a session store
func NewSession(store providers.SessionStore) *Session {
	return &Session{store: store}
}

// Credentials is what the gateway needs to call the store
type Credentials struct {
	AccessToken  string
	RefreshToken string
	UserID       string
}

// SaveCredentials persists a token pair after login or refresh. The access token is
// cleared first and written last, so a failed save never pairs it with stale keys.
func (s *Session) SaveCredentials(ctx context.Context, pair *entities.TokenPair) error {
	if err := s.store.Remove(ctx, providers.SessionKeyAccessToken); err != nil {
		return fmt.Errorf("failed to clear %s: %w", providers.SessionKeyAccessToken, err)
	}
	for _, kv := range [][2]string{
		{providers.SessionKeyUserID, pair.UserID},
		{providers.SessionKeyRefreshToken, pair.RefreshToken},
		{providers.SessionKeyAccessToken, pair.AccessToken},
	} {
		if err := s.store.Set(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to save %s: %w", kv[0], err)
		}
	}
	return nil
}

// ClearCredentials removes tokens and the cached current plant
func (s *Session) ClearCredentials(ctx context.Context) error {
	for _, key := range []string{
		providers.SessionKeyAccessToken,
		providers.SessionKeyRefreshToken,
		providers.SessionKeyUserID,
		providers.SessionKeyCurrentPlant,
	} {
		if err := s.store.Remove(ctx, key); err != nil {
			return fmt.Errorf("failed to remove %s: %w", key, err)
		}
	}
	return nil
}

// Credentials returns the stored credentials, or AUTH_REQUIRED when not signed in
func (s *Session) Credentials(ctx context.Context) (Credentials, error) {
	token, ok, err := s.store.Get(ctx, providers.SessionKeyAccessToken)
	if err != nil {
		return Credentials{}, err
	}
	userID, hasUser, err := s.store.Get(ctx, providers.SessionKeyUserID)
	if err != nil {
		return Credentials{}, err
	}
	if !ok || !hasUser || token == "" || userID == "" {
		return Credentials{}, apperrors.NewAuthRequiredError("not signed in")
	}
	refresh, _, err := s.store.Get(ctx, providers.SessionKeyRefreshToken)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{AccessToken: token, RefreshToken: refresh, UserID: userID}, nil
}

// CurrentPlant returns the last created or viewed record. It is a snapshot and may be stale.
func (s *Session) CurrentPlant(ctx context.Context) (*entities.PlantRecord, bool, error) {
	raw, ok, err := s.store.Get(ctx, providers.SessionKeyCurrentPlant)
	if err != nil || !ok {
		return nil, false, err
	}
	var record entities.PlantRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		// A corrupt snapshot is treated as absent
		return nil, false, nil
	}
	return &record, true, nil
}

// SetCurrentPlant stores a snapshot of record
func (s *Session) SetCurrentPlant(ctx context.Context, record *entities.PlantRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode current plant: %w", err)
	}
	return s.store.Set(ctx, providers.SessionKeyCurrentPlant, string(raw))
}

func (s *Session) clearCurrentPlantIf(ctx context.Context, id string) error {
	current, ok, err := s.CurrentPlant(ctx)
	if err != nil || !ok || current.ID != id {
		return err
	}
	return s.store.Remove(ctx, providers.SessionKeyCurrentPlant)
}
