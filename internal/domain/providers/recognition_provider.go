package providers

import (
	"context"

	"github.com/smartgarden/backend/internal/domain/entities"
)

// RecognitionProvider identifies plants and assesses their health from a local photo.
type RecognitionProvider interface {
	// Identify returns species suggestions for the photo
	Identify(ctx context.Context, imagePath string) (*entities.RecognitionResult, error)

	// AssessHealth returns a health verdict and disease suggestions for the photo
	AssessHealth(ctx context.Context, imagePath string) (*entities.HealthResult, error)

	// Ask sends a follow-up question about a previous identification
	Ask(ctx context.Context, accessToken, question string) (*entities.ConversationAnswer, error)
}
