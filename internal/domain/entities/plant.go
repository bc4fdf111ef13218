package entities

import (
	"strings"
	"time"
)

// PlantRecord is a user-owned plant combining a photo, its recognition result and an optional health assessment.
type PlantRecord struct {
	ID                string          `json:"id" db:"id"`
	UserID            string          `json:"userId" db:"user_id"`
	Name              string          `json:"name" db:"name"`
	Type              string          `json:"type,omitempty" db:"type"`
	Image             string          `json:"image" db:"image"`
	WateringFrequency string          `json:"wateringFrequency,omitempty" db:"watering_frequency"`
	LastWatered       string          `json:"lastWatered,omitempty" db:"last_watered"`
	IsPlant           IsPlant         `json:"isPlant" db:"is_plant"`
	Classification    Classification  `json:"classification" db:"classification"`
	PlantHealth       *PlantHealth    `json:"plantHealth,omitempty" db:"plant_health"`
	Recognition       RecognitionMeta `json:"recognition" db:"recognition"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time       `json:"updatedAt" db:"updated_at"`
}

// IsPlant is the classifier's confidence that the photo contains a plant.
type IsPlant struct {
	Probability float64 `json:"probability"`
	Binary      bool    `json:"binary"`
	Threshold   float64 `json:"threshold"`
}

// Classification holds species suggestions in the order the recognition API ranked them.
type Classification struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// Top returns the highest ranked suggestion, or false when there are none.
func (c Classification) Top() (Suggestion, bool) {
	if len(c.Suggestions) == 0 {
		return Suggestion{}, false
	}
	return c.Suggestions[0], true
}

// Suggestion is one candidate species.
type Suggestion struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Probability   float64           `json:"probability"`
	SimilarImages []SimilarImage    `json:"similarImages,omitempty"`
	Details       SuggestionDetails `json:"details"`
}

// SimilarImage is a reference photo returned alongside a suggestion.
type SimilarImage struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	URLSmall    string  `json:"urlSmall,omitempty"`
	LicenseName string  `json:"licenseName,omitempty"`
	LicenseURL  string  `json:"licenseUrl,omitempty"`
	Citation    string  `json:"citation,omitempty"`
	Similarity  float64 `json:"similarity"`
}

// SuggestionDetails is optional botanical metadata. Any field may be empty.
type SuggestionDetails struct {
	Language           string     `json:"language,omitempty"`
	EntityID           string     `json:"entityId,omitempty"`
	CommonNames        []string   `json:"commonNames,omitempty"`
	CommonUses         []string   `json:"commonUses,omitempty"`
	URL                string     `json:"url,omitempty"`
	Description        DetailText `json:"description"`
	Sunlight           DetailText `json:"sunlight"`
	Watering           DetailText `json:"watering"`
	TemperatureRange   DetailText `json:"temperatureRange"`
	BestLightCondition DetailText `json:"bestLightCondition"`
	BestSoilType       DetailText `json:"bestSoilType"`
	BestWatering       DetailText `json:"bestWatering"`
}

// DetailText is the canonical form of a free-form detail field. The zero value means unknown.
type DetailText struct {
	Text     string              `json:"text,omitempty"`
	Citation string              `json:"citation,omitempty"`
	Sections map[string][]string `json:"sections,omitempty"`
}

// Known reports whether the field carries any content.
func (d DetailText) Known() bool {
	return d.Text != "" || len(d.Sections) > 0
}

// OrDefault returns the text, or fallback when the field is unknown.
func (d DetailText) OrDefault(fallback string) string {
	if d.Text != "" {
		return d.Text
	}
	return fallback
}

// PlantHealth is the result of a health assessment attached to a record.
type PlantHealth struct {
	IsHealthy HealthVerdict      `json:"isHealthy"`
	Disease   *DiseaseAssessment `json:"disease,omitempty"`
}

// HealthVerdict is the classifier's confidence that the plant is healthy.
type HealthVerdict struct {
	Probability float64 `json:"probability"`
	Binary      bool    `json:"binary"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// DiseaseAssessment holds ranked disease candidates.
type DiseaseAssessment struct {
	Suggestions []DiseaseSuggestion `json:"suggestions"`
}

// DiseaseSuggestion is one candidate disease or issue.
type DiseaseSuggestion struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Probability   float64        `json:"probability"`
	SimilarImages []SimilarImage `json:"similarImages,omitempty"`
	Details       DiseaseDetails `json:"details"`
}

// DiseaseDetails is optional metadata about a disease candidate.
type DiseaseDetails struct {
	LocalName      string     `json:"localName,omitempty"`
	CommonNames    []string   `json:"commonNames,omitempty"`
	Classification []string   `json:"classification,omitempty"`
	URL            string     `json:"url,omitempty"`
	Description    DetailText `json:"description"`
	Treatment      DetailText `json:"treatment"`
	Cause          DetailText `json:"cause"`
}

// RecognitionMeta records where a record's classification came from.
type RecognitionMeta struct {
	AccessToken        string    `json:"accessToken,omitempty"`
	ModelVersion       string    `json:"modelVersion,omitempty"`
	Status             string    `json:"status,omitempty"`
	SLACompliantClient bool      `json:"slaCompliantClient"`
	SLACompliantSystem bool      `json:"slaCompliantSystem"`
	CreatedAt          time.Time `json:"createdAt,omitempty"`
	CompletedAt        time.Time `json:"completedAt,omitempty"`
}

// PlantUpdate carries the mutable fields of a record. Nil fields are left unchanged.
type PlantUpdate struct {
	Name              *string `json:"name,omitempty"`
	Type              *string `json:"type,omitempty"`
	WateringFrequency *string `json:"wateringFrequency,omitempty"`
	LastWatered       *string `json:"lastWatered,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u PlantUpdate) IsEmpty() bool {
	return u.Name == nil && u.Type == nil && u.WateringFrequency == nil && u.LastWatered == nil
}

// Apply merges the update into the record.
func (u PlantUpdate) Apply(r *PlantRecord) {
	if u.Name != nil {
		r.Name = strings.TrimSpace(*u.Name)
	}
	if u.Type != nil {
		r.Type = *u.Type
	}
	if u.WateringFrequency != nil {
		r.WateringFrequency = *u.WateringFrequency
	}
	if u.LastWatered != nil {
		r.LastWatered = *u.LastWatered
	}
}
