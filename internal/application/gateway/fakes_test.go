package gateway_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/smartgarden/backend/internal/domain/entities"
	apperrors "github.com/smartgarden/backend/pkg/errors"
)

type memorySession struct {
	mu      sync.Mutex
	data    map[string]string
	failSet map[string]error
}

func newMemorySession() *memorySession {
	return &memorySession{data: map[string]string{}}
}

func (m *memorySession) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failSet[key]; err != nil {
		return err
	}
	m.data[key] = value
	return nil
}

func (m *memorySession) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memorySession) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memorySession) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := []string{}
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// fakeStore behaves like the record API for a single process
type fakeStore struct {
	mu          sync.Mutex
	records     []*entities.PlantRecord
	nextID      int
	calls       map[string]int
	validTokens map[string]string
	fail        map[string]error
	refreshPair *entities.TokenPair
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		calls:       map[string]int{},
		validTokens: map[string]string{"tok": "u1"},
		fail:        map[string]error{},
	}
}

func (s *fakeStore) enter(op, token string) (string, error) {
	s.calls[op]++
	if err := s.fail[op]; err != nil {
		return "", err
	}
	user, ok := s.validTokens[token]
	if !ok {
		return "", apperrors.NewAuthRequiredError("invalid or expired token")
	}
	return user, nil
}

func (s *fakeStore) Refresh(ctx context.Context, refreshToken string) (*entities.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Refresh"]++
	if s.refreshPair == nil || refreshToken != "refresh" {
		return nil, apperrors.NewAuthRequiredError("invalid or expired token")
	}
	s.validTokens[s.refreshPair.AccessToken] = s.refreshPair.UserID
	return s.refreshPair, nil
}

func (s *fakeStore) CreatePlant(ctx context.Context, token string, record *entities.PlantRecord) (*entities.PlantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, err := s.enter("CreatePlant", token)
	if err != nil {
		return nil, err
	}
	if record.UserID != user {
		return nil, apperrors.NewRecordSubmissionError("forbidden", 403)
	}
	s.nextID++
	cp := *record
	cp.ID = fmt.Sprintf("p%d", s.nextID)
	s.records = append(s.records, &cp)
	out := cp
	return &out, nil
}

func (s *fakeStore) ListPlants(ctx context.Context, token, userID string) ([]*entities.PlantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.enter("ListPlants", token); err != nil {
		return nil, err
	}
	out := []*entities.PlantRecord{}
	for _, r := range s.records {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) GetPlant(ctx context.Context, token, userID, id string) (*entities.PlantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.enter("GetPlant", token); err != nil {
		return nil, err
	}
	for _, r := range s.records {
		if r.ID == id && r.UserID == userID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFoundError("plant not found")
}

func (s *fakeStore) SearchPlants(ctx context.Context, token, userID, query string) ([]*entities.PlantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.enter("SearchPlants", token); err != nil {
		return nil, err
	}
	out := []*entities.PlantRecord{}
	for _, r := range s.records {
		if r.UserID == userID && strings.Contains(strings.ToLower(r.Name), strings.ToLower(query)) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdatePlant(ctx context.Context, token, id string, update entities.PlantUpdate) (*entities.PlantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.enter("UpdatePlant", token); err != nil {
		return nil, err
	}
	for _, r := range s.records {
		if r.ID == id {
			update.Apply(r)
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFoundError("plant not found")
}

func (s *fakeStore) DeletePlant(ctx context.Context, token, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.enter("DeletePlant", token); err != nil {
		return err
	}
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}
	return nil
}

type fakeRecognizer struct {
	identify    func(ctx context.Context) (*entities.RecognitionResult, error)
	health      func(ctx context.Context) (*entities.HealthResult, error)
	askedToken  string
	healthCalls int
}

func (f *fakeRecognizer) Identify(ctx context.Context, imagePath string) (*entities.RecognitionResult, error) {
	return f.identify(ctx)
}

func (f *fakeRecognizer) AssessHealth(ctx context.Context, imagePath string) (*entities.HealthResult, error) {
	f.healthCalls++
	return f.health(ctx)
}

func (f *fakeRecognizer) Ask(ctx context.Context, accessToken, question string) (*entities.ConversationAnswer, error) {
	f.askedToken = accessToken
	return &entities.ConversationAnswer{Question: question, Answer: "Water weekly."}, nil
}

type fakeScheduler struct {
	mu        sync.Mutex
	next      int
	active    map[string]entities.Reminder
	cancelled []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{active: map[string]entities.Reminder{}}
}

func (f *fakeScheduler) Schedule(ctx context.Context, reminder entities.Reminder) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.Count(reminder.Schedule, " ") != 4 {
		return "", apperrors.NewValidationError("invalid schedule")
	}
	f.next++
	token := fmt.Sprintf("t%d", f.next)
	f.active[token] = reminder
	return token, nil
}

func (f *fakeScheduler) Cancel(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, token)
	f.cancelled = append(f.cancelled, token)
	return nil
}

func monsteraRecognition() *entities.RecognitionResult {
	return &entities.RecognitionResult{
		AccessToken:  "rec-token",
		ModelVersion: "plant_id:4.0",
		IsPlant:      entities.IsPlant{Probability: 0.99, Binary: true, Threshold: 0.5},
		Suggestions: []entities.Suggestion{
			{ID: "s1", Name: "Monstera Deliciosa", Probability: 0.95},
			{ID: "s2", Name: "Philodendron", Probability: 0.03},
			{ID: "s3", Name: "Epipremnum aureum", Probability: 0.01},
		},
	}
}
