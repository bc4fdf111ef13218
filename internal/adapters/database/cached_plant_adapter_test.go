package database_test

import (
	"context"
	"sync"
	"testing"

	"github.com/smartgarden/backend/internal/adapters/database"
	"github.com/smartgarden/backend/internal/domain/entities"
	"github.com/smartgarden/backend/internal/domain/providers"
	apperrors "github.com/smartgarden/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok, nil
}

type countingRepo struct {
	records  map[string]*entities.PlantRecord
	order    []string
	getCalls int
	lsCalls  int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{records: map[string]*entities.PlantRecord{}}
}

func (r *countingRepo) Create(ctx context.Context, record *entities.PlantRecord) error {
	cp := *record
	r.records[record.ID] = &cp
	r.order = append(r.order, record.ID)
	return nil
}

func (r *countingRepo) GetByID(ctx context.Context, id string) (*entities.PlantRecord, error) {
	r.getCalls++
	rec, ok := r.records[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("plant not found")
	}
	cp := *rec
	return &cp, nil
}

func (r *countingRepo) ListByUser(ctx context.Context, userID string) ([]*entities.PlantRecord, error) {
	r.lsCalls++
	out := []*entities.PlantRecord{}
	for _, id := range r.order {
		if rec, ok := r.records[id]; ok && rec.UserID == userID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *countingRepo) Update(ctx context.Context, record *entities.PlantRecord) error {
	if _, ok := r.records[record.ID]; !ok {
		return apperrors.NewNotFoundError("plant not found")
	}
	cp := *record
	r.records[record.ID] = &cp
	return nil
}

func (r *countingRepo) Delete(ctx context.Context, id string) (bool, error) {
	_, ok := r.records[id]
	delete(r.records, id)
	return ok, nil
}

func TestCachedPlantAdapter_ReadThrough(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	cached := database.NewCachedPlantAdapter(repo, newMemoryCache())

	require.NoError(t, cached.Create(ctx, &entities.PlantRecord{ID: "p1", UserID: "u1", Name: "Fern"}))

	for i := 0; i < 3; i++ {
		rec, err := cached.GetByID(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Fern", rec.Name)
	}
	assert.Equal(t, 1, repo.getCalls)

	for i := 0; i < 2; i++ {
		list, err := cached.ListByUser(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	}
	assert.Equal(t, 1, repo.lsCalls)
}

func TestCachedPlantAdapter_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	cached := database.NewCachedPlantAdapter(repo, newMemoryCache())

	require.NoError(t, cached.Create(ctx, &entities.PlantRecord{ID: "p1", UserID: "u1", Name: "Fern"}))
	_, err := cached.ListByUser(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, cached.Create(ctx, &entities.PlantRecord{ID: "p2", UserID: "u1", Name: "Cactus"}))
	list, err := cached.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID)
	assert.Equal(t, "p2", list[1].ID)

	rec, err := cached.GetByID(ctx, "p1")
	require.NoError(t, err)
	rec.Name = "Boston fern"
	require.NoError(t, cached.Update(ctx, rec))

	rec, err = cached.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Boston fern", rec.Name)

	list, err = cached.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Boston fern", list[0].Name)

	removed, err := cached.Delete(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = cached.GetByID(ctx, "p1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	list, err = cached.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "p2", list[0].ID)
}
