// Package gateway composes recognition results into plant records and talks to the
// record store on behalf of the signed-in user.
package gateway

import (
	"strings"

	"github.com/smartgarden/backend/internal/domain/entities"
	apperrors "github.com/smartgarden/backend/pkg/errors"
)

// BuildRecord merges a recognition result and an optional health result into the record
// that will be submitted. It refuses results that must never reach the store.
func BuildRecord(recognition *entities.RecognitionResult, health *entities.HealthResult, imageRef string) (*entities.PlantRecord, error) {
	if recognition == nil {
		return nil, apperrors.NewValidationError("recognition result is required")
	}
	if !recognition.IsPlant.Binary {
		return nil, apperrors.NewValidationError("not a plant")
	}
	top, ok := entities.Classification{Suggestions: recognition.Suggestions}.Top()
	if !ok {
		return nil, apperrors.NewPlantNotRecognizedError("no species suggestions for this photo")
	}

	suggestions := make([]entities.Suggestion, len(recognition.Suggestions))
	copy(suggestions, recognition.Suggestions)

	record := &entities.PlantRecord{
		Name:           strings.TrimSpace(top.Name),
		Image:          imageRef,
		IsPlant:        recognition.IsPlant,
		Classification: entities.Classification{Suggestions: suggestions},
		Recognition:    recognition.Meta(),
	}
	if health != nil {
		record.PlantHealth = health.Health()
	}
	return record, nil
}

// canSubmit re-checks the store precondition on records that did not come from BuildRecord
func canSubmit(record *entities.PlantRecord) error {
	if record == nil {
		return apperrors.NewValidationError("plant record is required")
	}
	if !record.IsPlant.Binary {
		return apperrors.NewValidationError("not a plant")
	}
	if len(record.Classification.Suggestions) == 0 {
		return apperrors.NewPlantNotRecognizedError("record has no species suggestions")
	}
	return nil
}
