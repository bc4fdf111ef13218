package plantid

import (
	"math"
	"time"

	"github.com/smartgarden/backend/internal/domain/entities"
)

// identificationRequest is the body for identification and health assessment calls
type identificationRequest struct {
	Images        []string `json:"images"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	SimilarImages bool     `json:"similar_images"`
	Health        string   `json:"health,omitempty"`
}

type conversationRequest struct {
	Question    string  `json:"question"`
	Temperature float64 `json:"temperature,omitempty"`
}

type inputDTO struct {
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	SimilarImages bool     `json:"similar_images"`
	Images        []string `json:"images"`
	Datetime      string   `json:"datetime"`
}

type probabilityDTO struct {
	Probability float64 `json:"probability"`
	Binary      bool    `json:"binary"`
	Threshold   float64 `json:"threshold"`
}

type similarImageDTO struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	URLSmall    string  `json:"url_small"`
	LicenseName string  `json:"license_name"`
	LicenseURL  string  `json:"license_url"`
	Citation    string  `json:"citation"`
	Similarity  float64 `json:"similarity"`
}

type suggestionDetailsDTO struct {
	Language           string             `json:"language"`
	EntityID           string             `json:"entity_id"`
	CommonNames        stringList         `json:"common_names"`
	CommonUses         stringList         `json:"common_uses"`
	URL                string             `json:"url"`
	Description        StringOrStructured `json:"description"`
	Sunlight           StringOrStructured `json:"sunlight"`
	Watering           StringOrStructured `json:"watering"`
	TemperatureRange   StringOrStructured `json:"temperature_range"`
	BestLightCondition StringOrStructured `json:"best_light_condition"`
	BestSoilType       StringOrStructured `json:"best_soil_type"`
	BestWatering       StringOrStructured `json:"best_watering"`
}

type suggestionDTO struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Probability   float64              `json:"probability"`
	SimilarImages []similarImageDTO    `json:"similar_images"`
	Details       suggestionDetailsDTO `json:"details"`
}

type diseaseDetailsDTO struct {
	LocalName      string             `json:"local_name"`
	CommonNames    stringList         `json:"common_names"`
	Classification stringList         `json:"classification"`
	URL            string             `json:"url"`
	Description    StringOrStructured `json:"description"`
	Treatment      StringOrStructured `json:"treatment"`
	Cause          StringOrStructured `json:"cause"`
}

type diseaseSuggestionDTO struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Probability   float64           `json:"probability"`
	SimilarImages []similarImageDTO `json:"similar_images"`
	Details       diseaseDetailsDTO `json:"details"`
}

type identificationResponse struct {
	AccessToken  string   `json:"access_token"`
	ModelVersion string   `json:"model_version"`
	CustomID     *string  `json:"custom_id"`
	Input        inputDTO `json:"input"`
	Result       *struct {
		IsPlant        probabilityDTO `json:"is_plant"`
		Classification *struct {
			Suggestions []suggestionDTO `json:"suggestions"`
		} `json:"classification"`
	} `json:"result"`
	Status             string  `json:"status"`
	SLACompliantClient *bool   `json:"sla_compliant_client"`
	SLACompliantSystem *bool   `json:"sla_compliant_system"`
	Created            float64 `json:"created"`
	Completed          float64 `json:"completed"`
}

type healthResponse struct {
	AccessToken  string `json:"access_token"`
	ModelVersion string `json:"model_version"`
	Result       *struct {
		IsPlant   probabilityDTO  `json:"is_plant"`
		IsHealthy *probabilityDTO `json:"is_healthy"`
		Disease   *struct {
			Suggestions []diseaseSuggestionDTO `json:"suggestions"`
		} `json:"disease"`
	} `json:"result"`
	Status    string  `json:"status"`
	Created   float64 `json:"created"`
	Completed float64 `json:"completed"`
}

type conversationMessageDTO struct {
	Content string  `json:"content"`
	Type    string  `json:"type"`
	Created float64 `json:"created"`
}

type conversationResponse struct {
	Answer         string                   `json:"answer"`
	Messages       []conversationMessageDTO `json:"messages"`
	RemainingCalls int                      `json:"remaining_calls"`
}

func (p probabilityDTO) isPlant() entities.IsPlant {
	return entities.IsPlant{Probability: p.Probability, Binary: p.Binary, Threshold: p.Threshold}
}

func (p probabilityDTO) verdict() entities.HealthVerdict {
	return entities.HealthVerdict{Probability: p.Probability, Binary: p.Binary, Threshold: p.Threshold}
}

func convertSimilarImages(in []similarImageDTO) []entities.SimilarImage {
	if len(in) == 0 {
		return nil
	}
	out := make([]entities.SimilarImage, len(in))
	for i, img := range in {
		out[i] = entities.SimilarImage{
			ID:          img.ID,
			URL:         img.URL,
			URLSmall:    img.URLSmall,
			LicenseName: img.LicenseName,
			LicenseURL:  img.LicenseURL,
			Citation:    img.Citation,
			Similarity:  img.Similarity,
		}
	}
	return out
}

func (s suggestionDTO) toEntity() entities.Suggestion {
	d := s.Details
	return entities.Suggestion{
		ID:            s.ID,
		Name:          s.Name,
		Probability:   s.Probability,
		SimilarImages: convertSimilarImages(s.SimilarImages),
		Details: entities.SuggestionDetails{
			Language:           d.Language,
			EntityID:           d.EntityID,
			CommonNames:        []string(d.CommonNames),
			CommonUses:         []string(d.CommonUses),
			URL:                d.URL,
			Description:        d.Description.Normalize(),
			Sunlight:           d.Sunlight.Normalize(),
			Watering:           d.Watering.Normalize(),
			TemperatureRange:   d.TemperatureRange.Normalize(),
			BestLightCondition: d.BestLightCondition.Normalize(),
			BestSoilType:       d.BestSoilType.Normalize(),
			BestWatering:       d.BestWatering.Normalize(),
		},
	}
}

func (s diseaseSuggestionDTO) toEntity() entities.DiseaseSuggestion {
	d := s.Details
	return entities.DiseaseSuggestion{
		ID:            s.ID,
		Name:          s.Name,
		Probability:   s.Probability,
		SimilarImages: convertSimilarImages(s.SimilarImages),
		Details: entities.DiseaseDetails{
			LocalName:      d.LocalName,
			CommonNames:    []string(d.CommonNames),
			Classification: []string(d.Classification),
			URL:            d.URL,
			Description:    d.Description.Normalize(),
			Treatment:      d.Treatment.Normalize(),
			Cause:          d.Cause.Normalize(),
		},
	}
}

// unixTime converts the API's fractional epoch seconds; zero stays the zero time
func unixTime(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
