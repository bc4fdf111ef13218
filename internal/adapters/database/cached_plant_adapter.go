package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smartgarden/backend/internal/domain/entities"
	"github.com/smartgarden/backend/internal/domain/providers"
	"github.com/smartgarden/backend/internal/domain/repositories"
	"github.com/smartgarden/backend/internal/infrastructure/observability"
)

// CachedPlantAdapter wraps a PlantRepository with read-through caching
type CachedPlantAdapter struct {
	adapter repositories.PlantRepository
	cache   providers.CacheProvider
}

// NewCachedPlantAdapter creates a new cached plant adapter
func NewCachedPlantAdapter(adapter repositories.PlantRepository, cache providers.CacheProvider) repositories.PlantRepository {
	return &CachedPlantAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

// Cache TTLs (in seconds)
const (
	plantByIDTTL  = 300
	plantsListTTL = 120
)

func plantCacheKey(id string) string {
	return fmt.Sprintf("plant:%s", id)
}

func plantsListCacheKey(userID string) string {
	return fmt.Sprintf("plants:user:%s", userID)
}

// Create stores the record and drops the owner's cached list
func (a *CachedPlantAdapter) Create(ctx context.Context, record *entities.PlantRecord) error {
	if err := a.adapter.Create(ctx, record); err != nil {
		return err
	}
	a.invalidate(ctx, plantsListCacheKey(record.UserID))
	return nil
}

// GetByID retrieves a record with caching
func (a *CachedPlantAdapter) GetByID(ctx context.Context, id string) (*entities.PlantRecord, error) {
	cacheKey := plantCacheKey(id)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var record entities.PlantRecord
		if err := json.Unmarshal(cached, &record); err == nil {
			return &record, nil
		}
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("plant_id", id).Msg("failed to decode cached plant")
	} else if !errors.Is(err, providers.ErrCacheMiss) {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("plant_id", id).Msg("plant cache read failed")
	}

	record, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.store(ctx, cacheKey, record, plantByIDTTL)
	return record, nil
}

// ListByUser retrieves a user's records with caching
func (a *CachedPlantAdapter) ListByUser(ctx context.Context, userID string) ([]*entities.PlantRecord, error) {
	cacheKey := plantsListCacheKey(userID)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var records []*entities.PlantRecord
		if err := json.Unmarshal(cached, &records); err == nil {
			return records, nil
		}
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("user_id", userID).Msg("failed to decode cached plant list")
	}

	records, err := a.adapter.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	a.store(ctx, cacheKey, records, plantsListTTL)
	return records, nil
}

// Update writes the record and invalidates its cache entries
func (a *CachedPlantAdapter) Update(ctx context.Context, record *entities.PlantRecord) error {
	if err := a.adapter.Update(ctx, record); err != nil {
		return err
	}
	a.invalidate(ctx, plantCacheKey(record.ID), plantsListCacheKey(record.UserID))
	return nil
}

// Delete removes the record and invalidates its cache entries
func (a *CachedPlantAdapter) Delete(ctx context.Context, id string) (bool, error) {
	keys := []string{plantCacheKey(id)}
	if existing, err := a.GetByID(ctx, id); err == nil {
		keys = append(keys, plantsListCacheKey(existing.UserID))
	}

	removed, err := a.adapter.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	a.invalidate(ctx, keys...)
	return removed, nil
}

func (a *CachedPlantAdapter) store(ctx context.Context, key string, value interface{}, ttl int) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, ttl); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("failed to cache plant data")
	}
}

func (a *CachedPlantAdapter) invalidate(ctx context.Context, keys ...string) {
	if err := a.cache.Delete(ctx, keys...); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Strs("keys", keys).Msg("failed to invalidate plant cache")
	}
}
