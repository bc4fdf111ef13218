package gateway

import (
	"context"
	"path/filepath"

	"github.com/smartgarden/backend/internal/domain/entities"
	"github.com/smartgarden/backend/internal/domain/providers"
	"github.com/smartgarden/backend/internal/infrastructure/observability"
)

// IdentifyOptions controls the identify flow
type IdentifyOptions struct {
	// AssessHealth also runs a health assessment on the photo
	AssessHealth bool
	// RequireHealth fails the flow when the health assessment fails
	RequireHealth bool
	// ImageRef is stored on the record; defaults to a file URI of the photo
	ImageRef string
}

// IdentifyResult is everything the flow produced
type IdentifyResult struct {
	Record      *entities.PlantRecord
	Recognition *entities.RecognitionResult
	Health      *entities.HealthResult
	// HealthErr is set when an optional health assessment failed
	HealthErr error
}

// Identifier runs photo -> recognition -> optional health -> record -> store
type Identifier struct {
	recognizer providers.RecognitionProvider
	records    *RecordGateway
}

// NewIdentifier creates an identifier
func NewIdentifier(recognizer providers.RecognitionProvider, records *RecordGateway) *Identifier {
	return &Identifier{recognizer: recognizer, records: records}
}

// Identify recognises the plant in imagePath and submits the resulting record.
// Any recognition failure returns before the store is contacted.
func (i *Identifier) Identify(ctx context.Context, imagePath string, opts IdentifyOptions) (*IdentifyResult, error) {
	logger := observability.LoggerFromContext(ctx)

	recognition, err := i.recognizer.Identify(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	result := &IdentifyResult{Recognition: recognition}

	if opts.AssessHealth {
		health, err := i.recognizer.AssessHealth(ctx, imagePath)
		if err != nil {
			if opts.RequireHealth {
				return nil, err
			}
			logger.Warn().Err(err).Msg("health assessment failed, keeping recognition only")
			result.HealthErr = err
		} else {
			result.Health = health
		}
	}

	imageRef := opts.ImageRef
	if imageRef == "" {
		imageRef = fileURI(imagePath)
	}

	record, err := BuildRecord(recognition, result.Health, imageRef)
	if err != nil {
		return nil, err
	}

	created, err := i.records.Submit(ctx, record)
	if err != nil {
		return nil, err
	}
	result.Record = created

	logger.Info().Str("plant_id", created.ID).Str("name", created.Name).Msg("plant identified")
	return result, nil
}

// Ask sends a follow-up question about a record's identification
func (i *Identifier) Ask(ctx context.Context, record *entities.PlantRecord, question string) (*entities.ConversationAnswer, error) {
	return i.recognizer.Ask(ctx, record.Recognition.AccessToken, question)
}

func fileURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}
