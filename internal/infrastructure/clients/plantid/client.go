// Package plantid talks to the plant.id v3 API: species identification, health assessment
// and follow-up questions about an identification.
package plantid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smartgarden/backend/internal/domain/entities"
	"github.com/smartgarden/backend/internal/domain/providers"
	"github.com/smartgarden/backend/internal/imaging"
	"github.com/smartgarden/backend/internal/infrastructure/observability"
	"github.com/smartgarden/backend/pkg/config"
	apperrors "github.com/smartgarden/backend/pkg/errors"
	"github.com/sony/gobreaker"
)

const (
	DefaultBaseURL = "https://plant.id/api/v3"
	DefaultTimeout = 20 * time.Second

	identificationDetails = "common_names,url,description,watering,best_light_condition,best_soil_type,best_watering,common_uses"
	healthDetails         = "local_name,description,url,treatment,classification,common_names,cause"

	maxResponseBytes = 8 << 20
)

// Options configures a Client
type Options struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	SimilarImages bool
	Language      string

	Location     providers.LocationProvider
	Preprocessor *imaging.Preprocessor
	HTTPClient   *http.Client
	Metrics      *observability.Metrics
	// Breaker overrides the default circuit breaker settings
	Breaker *gobreaker.Settings
}

// Client implements providers.RecognitionProvider against plant.id
type Client struct {
	apiKey        string
	baseURL       string
	timeout       time.Duration
	similarImages bool
	language      string

	location     providers.LocationProvider
	preprocessor *imaging.Preprocessor
	httpClient   *http.Client
	metrics      *observability.Metrics
	breaker      *gobreaker.CircuitBreaker
}

var _ providers.RecognitionProvider = (*Client)(nil)

// NewClient creates a recognition client
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	pre := opts.Preprocessor
	if pre == nil {
		pre = imaging.New(imaging.DefaultMaxWidth, imaging.DefaultQuality, "")
	}

	settings := gobreaker.Settings{
		Name:        "plantid",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.GetLogger().Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}
	if opts.Breaker != nil {
		settings = *opts.Breaker
	}

	return &Client{
		apiKey:        opts.APIKey,
		baseURL:       baseURL,
		timeout:       timeout,
		similarImages: opts.SimilarImages,
		language:      opts.Language,
		location:      opts.Location,
		preprocessor:  pre,
		httpClient:    httpClient,
		metrics:       opts.Metrics,
		breaker:       gobreaker.NewCircuitBreaker(settings),
	}
}

// NewClientFromConfig creates a recognition client from application configuration
func NewClientFromConfig(cfg *config.PlantIDConfig, pre *imaging.Preprocessor, location providers.LocationProvider, metrics *observability.Metrics) *Client {
	return NewClient(Options{
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		Timeout:       cfg.Timeout,
		SimilarImages: cfg.SimilarImages,
		Language:      cfg.Language,
		Location:      location,
		Preprocessor:  pre,
		Metrics:       metrics,
	})
}

// Identify sends the photo for species identification
func (c *Client) Identify(ctx context.Context, imagePath string) (*entities.RecognitionResult, error) {
	ctx, span := observability.StartSpan(ctx, "plantid.Identify")
	defer span.End()

	body, err := c.buildRequest(ctx, imagePath)
	if err != nil {
		return nil, err
	}

	data, err := c.post(ctx, "identify", c.endpoint("/identification", identificationDetails), body)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	var resp identificationResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, apperrors.NewRecognitionProtocolError("cannot decode identification response", err)
	}
	if resp.Result == nil {
		return nil, apperrors.NewRecognitionProtocolError("identification response has no result", nil)
	}

	var suggestions []suggestionDTO
	if resp.Result.Classification != nil {
		suggestions = resp.Result.Classification.Suggestions
	}
	if len(suggestions) == 0 {
		return nil, apperrors.NewPlantNotRecognizedError("no species suggestions returned")
	}

	result := &entities.RecognitionResult{
		AccessToken:        resp.AccessToken,
		ModelVersion:       resp.ModelVersion,
		IsPlant:            resp.Result.IsPlant.isPlant(),
		Suggestions:        make([]entities.Suggestion, len(suggestions)),
		Status:             resp.Status,
		SLACompliantClient: boolOr(resp.SLACompliantClient, true),
		SLACompliantSystem: boolOr(resp.SLACompliantSystem, true),
		Input: entities.RecognitionInput{
			Latitude:      body.Latitude,
			Longitude:     body.Longitude,
			SimilarImages: body.SimilarImages,
			Images:        resp.Input.Images,
			Datetime:      resp.Input.Datetime,
		},
		CreatedAt:   unixTime(resp.Created),
		CompletedAt: unixTime(resp.Completed),
	}
	if resp.CustomID != nil {
		result.CustomID = *resp.CustomID
	}
	if result.Status == "" {
		result.Status = "COMPLETED"
	}
	for i, s := range suggestions {
		result.Suggestions[i] = s.toEntity()
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("access_token", result.AccessToken).
		Str("top", result.Suggestions[0].Name).
		Float64("probability", result.Suggestions[0].Probability).
		Msg("plant identified")
	return result, nil
}

// AssessHealth sends the photo for a health assessment
func (c *Client) AssessHealth(ctx context.Context, imagePath string) (*entities.HealthResult, error) {
	ctx, span := observability.StartSpan(ctx, "plantid.AssessHealth")
	defer span.End()

	body, err := c.buildRequest(ctx, imagePath)
	if err != nil {
		return nil, err
	}

	data, err := c.post(ctx, "health", c.endpoint("/health_assessment", healthDetails), body)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	var resp healthResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, apperrors.NewRecognitionProtocolError("cannot decode health response", err)
	}
	if resp.Result == nil || resp.Result.IsHealthy == nil {
		return nil, apperrors.NewRecognitionProtocolError("health response has no verdict", nil)
	}

	result := &entities.HealthResult{
		AccessToken:  resp.AccessToken,
		ModelVersion: resp.ModelVersion,
		IsPlant:      resp.Result.IsPlant.isPlant(),
		IsHealthy:    resp.Result.IsHealthy.verdict(),
		Diseases:     []entities.DiseaseSuggestion{},
		Status:       resp.Status,
		CreatedAt:    unixTime(resp.Created),
		CompletedAt:  unixTime(resp.Completed),
	}
	if resp.Result.Disease != nil {
		for _, d := range resp.Result.Disease.Suggestions {
			result.Diseases = append(result.Diseases, d.toEntity())
		}
	}
	return result, nil
}

// Ask sends a follow-up question about an earlier identification
func (c *Client) Ask(ctx context.Context, accessToken, question string) (*entities.ConversationAnswer, error) {
	accessToken = strings.TrimSpace(accessToken)
	question = strings.TrimSpace(question)
	if accessToken == "" {
		return nil, apperrors.NewValidationError("identification access token is required")
	}
	if question == "" {
		return nil, apperrors.NewValidationError("question is required")
	}

	ctx, span := observability.StartSpan(ctx, "plantid.Ask")
	defer span.End()

	endpoint := fmt.Sprintf("%s/identification/%s/conversation", c.baseURL, url.PathEscape(accessToken))
	data, err := c.post(ctx, "conversation", endpoint, conversationRequest{Question: question, Temperature: 0.5})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	var resp conversationResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, apperrors.NewRecognitionProtocolError("cannot decode conversation response", err)
	}

	answer := strings.TrimSpace(resp.Answer)
	if answer == "" {
		for i := len(resp.Messages) - 1; i >= 0; i-- {
			if resp.Messages[i].Type == "answer" {
				answer = strings.TrimSpace(resp.Messages[i].Content)
				break
			}
		}
	}
	if answer == "" {
		return nil, apperrors.NewRecognitionProtocolError("conversation response has no answer", nil)
	}

	return &entities.ConversationAnswer{
		Question:       question,
		Answer:         answer,
		RemainingCalls: resp.RemainingCalls,
	}, nil
}

func (c *Client) endpoint(path, details string) string {
	query := url.Values{}
	query.Set("details", details)
	if c.language != "" {
		query.Set("language", c.language)
	}
	return fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
}

func (c *Client) buildRequest(ctx context.Context, imagePath string) (identificationRequest, error) {
	dataURI, err := c.preprocessor.PrepareDataURI(ctx, imagePath)
	if err != nil {
		return identificationRequest{}, err
	}

	var coords providers.Coordinates
	if c.location != nil {
		coords, err = c.location.Locate(ctx)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("location unavailable, sending request without coordinates")
			coords = providers.Coordinates{}
		}
	}

	return identificationRequest{
		Images:        []string{dataURI},
		Latitude:      coords.Latitude,
		Longitude:     coords.Longitude,
		SimilarImages: c.similarImages,
	}, nil
}

// statusError marks responses that count against the circuit breaker
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("recognition api returned status %d", e.code)
}

type rawResponse struct {
	status int
	body   []byte
}

// post bounds only the network call by the client timeout; preprocessing and location lookup are not counted
func (c *Client) post(ctx context.Context, operation, endpoint string, payload interface{}) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	data, err := c.doPost(callCtx, endpoint, payload)
	observability.RecordRecognitionMetric(ctx, c.metrics, operation, string(apperrors.TypeOf(err)), time.Since(start))
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("operation", operation).Dur("elapsed", time.Since(start)).Msg("recognition call failed")
	}
	return data, err
}

func (c *Client) doPost(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode recognition request", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Api-Key", c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, &statusError{code: resp.StatusCode}
		}
		return &rawResponse{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	raw := out.(*rawResponse)
	switch {
	case raw.status >= 200 && raw.status < 300:
		return raw.body, nil
	case raw.status == http.StatusUnauthorized || raw.status == http.StatusForbidden:
		appErr := apperrors.NewAuthRequiredError("recognition API key was rejected")
		appErr.StatusCode = raw.status
		return nil, appErr
	default:
		appErr := apperrors.NewRecognitionProtocolError(fmt.Sprintf("recognition api rejected the request with status %d", raw.status), nil)
		appErr.StatusCode = raw.status
		return nil, appErr
	}
}

func classifyTransportError(ctx context.Context, err error) error {
	var se *statusError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return apperrors.NewRecognitionUnavailableError("recognition service is temporarily unavailable", err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.NewRecognitionUnavailableError("recognition request timed out", err)
	case errors.As(err, &se):
		appErr := apperrors.NewRecognitionUnavailableError("recognition service error", err)
		appErr.StatusCode = se.code
		return appErr
	default:
		return apperrors.NewRecognitionUnavailableError("recognition service unreachable", err)
	}
}
