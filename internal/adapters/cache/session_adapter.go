package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smartgarden/backend/internal/domain/providers"
)

const sessionCachePrefix = "cache:"

type sessionEntry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// SessionAdapter implements CacheProvider on top of the client's durable session store.
// Expired entries are dropped lazily on read.
type SessionAdapter struct {
	store providers.SessionStore
	now   func() time.Time
}

// NewSessionAdapter creates a cache backed by store
func NewSessionAdapter(store providers.SessionStore) providers.CacheProvider {
	return &SessionAdapter{store: store, now: time.Now}
}

// Get retrieves a value from cache
func (a *SessionAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	raw, ok, err := a.store.Get(ctx, sessionCachePrefix+key)
	if err != nil {
		return nil, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}
	if !ok {
		return nil, providers.ErrCacheMiss
	}

	var entry sessionEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || a.expired(entry) {
		a.store.Remove(ctx, sessionCachePrefix+key)
		return nil, providers.ErrCacheMiss
	}
	return entry.Value, nil
}

// Set stores a value; expirationSeconds <= 0 keeps it until deleted
func (a *SessionAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	entry := sessionEntry{Value: value}
	if expirationSeconds > 0 {
		entry.ExpiresAt = a.now().Add(time.Duration(expirationSeconds) * time.Second)
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache key %s: %w", key, err)
	}
	return a.store.Set(ctx, sessionCachePrefix+key, string(raw))
}

// Delete removes the given keys
func (a *SessionAdapter) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := a.store.Remove(ctx, sessionCachePrefix+key); err != nil {
			return fmt.Errorf("failed to delete cache key %s: %w", key, err)
		}
	}
	return nil
}

// Exists checks if a live key exists
func (a *SessionAdapter) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.Get(ctx, key)
	if err == providers.ErrCacheMiss {
		return false, nil
	}
	return err == nil, err
}

func (a *SessionAdapter) expired(entry sessionEntry) bool {
	return !entry.ExpiresAt.IsZero() && !a.now().Before(entry.ExpiresAt)
}
