package services_test

import (
	"context"
	"sync"

	"github.com/smartgarden/backend/internal/domain/entities"
	apperrors "github.com/smartgarden/backend/pkg/errors"
	"github.com/stretchr/testify/mock"
)

type memoryPlantRepo struct {
	mu      sync.Mutex
	records []*entities.PlantRecord
}

func (r *memoryPlantRepo) Create(ctx context.Context, record *entities.PlantRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *record
	r.records = append(r.records, &cp)
	return nil
}

func (r *memoryPlantRepo) GetByID(ctx context.Context, id string) (*entities.PlantRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFoundError("plant not found")
}

func (r *memoryPlantRepo) ListByUser(ctx context.Context, userID string) ([]*entities.PlantRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entities.PlantRecord{}
	for _, rec := range r.records {
		if rec.UserID == userID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memoryPlantRepo) Update(ctx context.Context, record *entities.PlantRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records {
		if rec.ID == record.ID {
			cp := *record
			r.records[i] = &cp
			return nil
		}
	}
	return apperrors.NewNotFoundError("plant not found")
}

func (r *memoryPlantRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records {
		if rec.ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type mockSearchIndex struct {
	mock.Mock
}

func (m *mockSearchIndex) Index(ctx context.Context, record *entities.PlantRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockSearchIndex) Remove(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSearchIndex) Search(ctx context.Context, userID, query string, limit int) ([]string, error) {
	args := m.Called(ctx, userID, query, limit)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*entities.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[string]*entities.User{}}
}

func (r *memoryUserRepo) Create(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return apperrors.NewConflictError("email already registered")
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperrors.NewNotFoundError("user not found")
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFoundError("user not found")
}
