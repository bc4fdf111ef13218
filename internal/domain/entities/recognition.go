package entities

import "time"

// RecognitionResult is the normalized outcome of an identification request.
type RecognitionResult struct {
	AccessToken        string
	ModelVersion       string
	CustomID           string
	IsPlant            IsPlant
	Suggestions        []Suggestion
	Status             string
	SLACompliantClient bool
	SLACompliantSystem bool
	Input              RecognitionInput
	CreatedAt          time.Time
	CompletedAt        time.Time
}

// RecognitionInput echoes the calibration parameters sent with the request.
type RecognitionInput struct {
	Latitude      float64
	Longitude     float64
	SimilarImages bool
	Images        []string
	Datetime      string
}

// Meta returns the provenance fields stored with a record.
func (r *RecognitionResult) Meta() RecognitionMeta {
	return RecognitionMeta{
		AccessToken:        r.AccessToken,
		ModelVersion:       r.ModelVersion,
		Status:             r.Status,
		SLACompliantClient: r.SLACompliantClient,
		SLACompliantSystem: r.SLACompliantSystem,
		CreatedAt:          r.CreatedAt,
		CompletedAt:        r.CompletedAt,
	}
}

// HealthResult is the normalized outcome of a health assessment request.
type HealthResult struct {
	AccessToken  string
	ModelVersion string
	IsPlant      IsPlant
	IsHealthy    HealthVerdict
	Diseases     []DiseaseSuggestion
	Status       string
	CreatedAt    time.Time
	CompletedAt  time.Time
}

// Health converts the result into the shape stored on a record.
func (h *HealthResult) Health() *PlantHealth {
	health := &PlantHealth{IsHealthy: h.IsHealthy}
	if len(h.Diseases) > 0 {
		health.Disease = &DiseaseAssessment{Suggestions: h.Diseases}
	}
	return health
}

// ConversationAnswer is the reply to a follow-up question about an identification.
type ConversationAnswer struct {
	Question       string
	Answer         string
	RemainingCalls int
}
