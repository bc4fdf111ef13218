package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/smartgarden/backend/internal/domain/entities"
	"github.com/smartgarden/backend/internal/domain/providers"
	"github.com/smartgarden/backend/internal/domain/repositories"
	"github.com/smartgarden/backend/internal/infrastructure/observability"
	apperrors "github.com/smartgarden/backend/pkg/errors"
)

const (
	maxUserIDLength    = 128
	defaultSearchLimit = 20
)

// PlantService enforces ownership and validation rules for plant records
type PlantService struct {
	repo  repositories.PlantRepository
	index providers.PlantSearchIndex
	now   func() time.Time
}

// NewPlantService creates a new plant service. index may be nil.
func NewPlantService(repo repositories.PlantRepository, index providers.PlantSearchIndex) *PlantService {
	return &PlantService{
		repo:  repo,
		index: index,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and stores a new record owned by callerID
func (s *PlantService) Create(ctx context.Context, callerID string, record *entities.PlantRecord) (*entities.PlantRecord, error) {
	if record == nil {
		return nil, apperrors.NewValidationError("plant record is required")
	}
	if record.UserID == "" {
		record.UserID = callerID
	}
	if err := validateUserID(record.UserID); err != nil {
		return nil, err
	}
	if record.UserID != callerID {
		return nil, apperrors.NewForbiddenError("cannot create plants for another user")
	}

	record.Name = strings.TrimSpace(record.Name)
	if record.Name == "" {
		return nil, apperrors.NewValidationError("name is required")
	}
	if len(record.Classification.Suggestions) == 0 {
		return nil, apperrors.NewValidationError("classification must contain at least one suggestion")
	}
	if !record.IsPlant.Binary {
		return nil, apperrors.NewValidationError("photo was not classified as a plant")
	}

	now := s.now()
	record.ID = uuid.NewString()
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.reindex(ctx, record)
	observability.LoggerFromContext(ctx).Info().Str("plant_id", record.ID).Str("user_id", record.UserID).Msg("plant record created")
	return record, nil
}

// List returns userID's records in insertion order
func (s *PlantService) List(ctx context.Context, callerID, userID string) ([]*entities.PlantRecord, error) {
	if err := s.authorizeUser(callerID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, userID)
}

// Get returns a single record owned by callerID
func (s *PlantService) Get(ctx context.Context, callerID, id string) (*entities.PlantRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("plant id is required")
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.UserID != callerID {
		return nil, apperrors.NewForbiddenError("plant belongs to another user")
	}
	return record, nil
}

// Update applies the user-editable fields and returns the stored record
func (s *PlantService) Update(ctx context.Context, callerID, id string, update entities.PlantUpdate) (*entities.PlantRecord, error) {
	if update.IsEmpty() {
		return nil, apperrors.NewValidationError("no updatable fields supplied")
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, apperrors.NewValidationError("name cannot be blank")
	}

	record, err := s.Get(ctx, callerID, id)
	if err != nil {
		return nil, err
	}

	update.Apply(record)
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}

	s.reindex(ctx, record)
	return record, nil
}

// Delete removes a record. Deleting a record that does not exist succeeds.
func (s *PlantService) Delete(ctx context.Context, callerID, id string) error {
	record, err := s.Get(ctx, callerID, id)
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := s.repo.Delete(ctx, record.ID); err != nil {
		return err
	}

	if s.index != nil {
		if err := s.index.Remove(ctx, record.ID); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("plant_id", record.ID).Msg("failed to remove plant from search index")
		}
	}
	return nil
}

// Search finds userID's records whose names match query
func (s *PlantService) Search(ctx context.Context, callerID, userID, query string) ([]*entities.PlantRecord, error) {
	if err := s.authorizeUser(callerID, userID); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("search query is required")
	}

	if s.index != nil {
		ids, err := s.index.Search(ctx, userID, query, defaultSearchLimit)
		if err == nil {
			return s.loadOwned(ctx, userID, ids)
		}
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("search index unavailable, scanning records")
	}

	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return filterRecords(records, query), nil
}

func (s *PlantService) loadOwned(ctx context.Context, userID string, ids []string) ([]*entities.PlantRecord, error) {
	out := []*entities.PlantRecord{}
	for _, id := range ids {
		record, err := s.repo.GetByID(ctx, id)
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if record.UserID == userID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *PlantService) reindex(ctx context.Context, record *entities.PlantRecord) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(ctx, record); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("plant_id", record.ID).Msg("failed to index plant")
	}
}

func (s *PlantService) authorizeUser(callerID, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if userID != callerID {
		return apperrors.NewForbiddenError("cannot access another user's plants")
	}
	return nil
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.NewValidationError("userId is required")
	}
	if len(userID) > maxUserIDLength {
		return apperrors.NewValidationError("userId is too long")
	}
	for _, r := range userID {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '/' {
			return apperrors.NewValidationError(fmt.Sprintf("userId %q is malformed", userID))
		}
	}
	return nil
}

func filterRecords(records []*entities.PlantRecord, query string) []*entities.PlantRecord {
	needle := strings.ToLower(query)
	out := []*entities.PlantRecord{}
	for _, r := range records {
		if matchesRecord(r, needle) {
			out = append(out, r)
		}
	}
	return out
}

func matchesRecord(r *entities.PlantRecord, needle string) bool {
	if strings.Contains(strings.ToLower(r.Name), needle) || strings.Contains(strings.ToLower(r.Type), needle) {
		return true
	}
	if top, ok := r.Classification.Top(); ok {
		for _, name := range top.Details.CommonNames {
			if strings.Contains(strings.ToLower(name), needle) {
				return true
			}
		}
	}
	return false
}
