package plantid

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartgarden/backend/internal/adapters/providers/geolocation"
	"github.com/smartgarden/backend/internal/domain/providers"
	"github.com/smartgarden/backend/internal/imaging"
	apperrors "github.com/smartgarden/backend/pkg/errors"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const monsteraResponse = `{
  "access_token": "tok-123",
  "model_version": "plant_id:4.0.0",
  "custom_id": null,
  "input": {"latitude": 49.207, "longitude": 16.608, "similar_images": true, "images": ["https://example/img.jpg"], "datetime": "2024-06-01T10:00:00+00:00"},
  "result": {
    "is_plant": {"probability": 0.98, "binary": true, "threshold": 0.5},
    "classification": {
      "suggestions": [
        {"id": "s1", "name": "Monstera deliciosa", "probability": 0.92,
         "similar_images": [{"id": "i1", "url": "https://example/1.jpg", "url_small": "https://example/1s.jpg", "similarity": 0.8}],
         "details": {"language": "en", "entity_id": "e1", "common_names": ["Swiss cheese plant"],
                     "description": {"value": "A species of flowering plant.", "citation": "https://en.wikipedia.org/wiki/Monstera_deliciosa"},
                     "watering": {"min": 2, "max": 2}}},
        {"id": "s2", "name": "Philodendron bipinnatifidum", "probability": 0.04, "details": {}}
      ]
    }
  },
  "status": "COMPLETED",
  "sla_compliant_client": true,
  "sla_compliant_system": false,
  "created": 1717236000.12,
  "completed": 1717236001.5
}`

func writePhoto(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		img.Set(x, x%30, color.RGBA{G: 200, A: 255})
	}
	path := filepath.Join(t.TempDir(), "leaf.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func newTestClient(t *testing.T, server *httptest.Server, mutate func(*Options)) *Client {
	t.Helper()
	opts := Options{
		APIKey:        "test-key",
		BaseURL:       server.URL,
		Timeout:       2 * time.Second,
		SimilarImages: true,
		Language:      "en",
		Location:      geolocation.NewStaticProvider(49.207, 16.608),
		Preprocessor:  imaging.New(800, 70, t.TempDir()),
		HTTPClient:    server.Client(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewClient(opts)
}

func TestIdentify_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/identification", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Api-Key"))
		assert.Contains(t, r.URL.Query().Get("details"), "common_names")
		assert.Equal(t, "en", r.URL.Query().Get("language"))

		var body identificationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Images, 1)
		assert.True(t, strings.HasPrefix(body.Images[0], "data:image/jpeg;base64,"))
		assert.Equal(t, 49.207, body.Latitude)
		assert.Equal(t, 16.608, body.Longitude)
		assert.True(t, body.SimilarImages)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(monsteraResponse))
	}))
	defer server.Close()

	result, err := newTestClient(t, server, nil).Identify(context.Background(), writePhoto(t))
	require.NoError(t, err)

	assert.Equal(t, "tok-123", result.AccessToken)
	assert.True(t, result.IsPlant.Binary)
	require.Len(t, result.Suggestions, 2)
	top := result.Suggestions[0]
	assert.Equal(t, "Monstera deliciosa", top.Name)
	assert.Equal(t, 0.92, top.Probability)
	assert.Equal(t, []string{"Swiss cheese plant"}, top.Details.CommonNames)
	assert.Equal(t, "A species of flowering plant.", top.Details.Description.Text)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Monstera_deliciosa", top.Details.Description.Citation)
	assert.Equal(t, map[string][]string{"min": {"2"}, "max": {"2"}}, top.Details.Watering.Sections)
	assert.False(t, top.Details.Sunlight.Known())
	require.Len(t, top.SimilarImages, 1)
	assert.Equal(t, "https://example/1s.jpg", top.SimilarImages[0].URLSmall)
	assert.Equal(t, "Philodendron bipinnatifidum", result.Suggestions[1].Name)
	assert.True(t, result.SLACompliantClient)
	assert.False(t, result.SLACompliantSystem)
	assert.Equal(t, int64(1717236000), result.CreatedAt.Unix())
	assert.Equal(t, 49.207, result.Input.Latitude)
}

func TestIdentify_NestedDetailKeepsSuggestion(t *testing.T) {
	body := strings.Replace(monsteraResponse, `"watering": {"min": 2, "max": 2}`, `"watering": {"min": 2, "max": 2, "unit": {"name": "week"}}`, 1)
	require.NotEqual(t, monsteraResponse, body)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	result, err := newTestClient(t, server, nil).Identify(context.Background(), writePhoto(t))
	require.NoError(t, err)
	require.NotEmpty(t, result.Suggestions)
	top := result.Suggestions[0]
	assert.Equal(t, "Monstera deliciosa", top.Name)
	assert.Equal(t, []string{"2"}, top.Details.Watering.Sections["min"])
	assert.Equal(t, []string{`{"name":"week"}`}, top.Details.Watering.Sections["unit"])
}

func TestIdentify_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType apperrors.ErrorType
	}{
		{name: "empty suggestions", status: 201, body: `{"result":{"is_plant":{"binary":true},"classification":{"suggestions":[]}}}`, wantType: apperrors.ErrorTypePlantNotRecognized},
		{name: "missing classification", status: 201, body: `{"result":{"is_plant":{"binary":false}}}`, wantType: apperrors.ErrorTypePlantNotRecognized},
		{name: "missing result", status: 201, body: `{"access_token":"x"}`, wantType: apperrors.ErrorTypeRecognitionProtocol},
		{name: "not json", status: 200, body: `<html>oops</html>`, wantType: apperrors.ErrorTypeRecognitionProtocol},
		{name: "unauthorized", status: 401, body: `{"error":"bad key"}`, wantType: apperrors.ErrorTypeAuthRequired},
		{name: "bad request", status: 400, body: `{"error":"bad image"}`, wantType: apperrors.ErrorTypeRecognitionProtocol},
		{name: "server error", status: 502, body: ``, wantType: apperrors.ErrorTypeRecognitionUnavailable},
		{name: "rate limited", status: 429, body: ``, wantType: apperrors.ErrorTypeRecognitionUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			result, err := newTestClient(t, server, nil).Identify(context.Background(), writePhoto(t))
			assert.Nil(t, result)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
		})
	}
}

func TestIdentify_ServerErrorCarriesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(t, server, nil).Identify(context.Background(), writePhoto(t))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.StatusCode)
}

func TestIdentify_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, func(o *Options) { o.Timeout = 100 * time.Millisecond })

	start := time.Now()
	_, err := client.Identify(context.Background(), writePhoto(t))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRecognitionUnavailable))
	assert.Less(t, time.Since(start), time.Second)
}

type slowLocation struct{ delay time.Duration }

func (s slowLocation) Locate(ctx context.Context) (providers.Coordinates, error) {
	time.Sleep(s.delay)
	return providers.Coordinates{Latitude: 49.207, Longitude: 16.608}, nil
}

func TestIdentify_SlowLocationDoesNotEatCallTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(monsteraResponse))
	}))
	defer server.Close()

	client := newTestClient(t, server, func(o *Options) {
		o.Timeout = 200 * time.Millisecond
		o.Location = slowLocation{delay: 300 * time.Millisecond}
	})

	result, err := client.Identify(context.Background(), writePhoto(t))
	require.NoError(t, err)
	assert.Equal(t, "Monstera deliciosa", result.Suggestions[0].Name)
}

func TestIdentify_BreakerOpens(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server, func(o *Options) {
		o.Breaker = &gobreaker.Settings{
			Name:        "test",
			Timeout:     time.Minute,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 2 },
		}
	})
	photo := writePhoto(t)

	for i := 0; i < 3; i++ {
		_, err := client.Identify(context.Background(), photo)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRecognitionUnavailable))
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestIdentify_ClientErrorsDoNotTripBreaker(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":{"is_plant":{"binary":true},"classification":{"suggestions":[]}}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, func(o *Options) {
		o.Breaker = &gobreaker.Settings{
			Name:        "test",
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 1 },
		}
	})
	photo := writePhoto(t)

	for i := 0; i < 3; i++ {
		_, err := client.Identify(context.Background(), photo)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePlantNotRecognized))
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestIdentify_BadImageNeverCallsAPI(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	bogus := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(bogus, []byte("hello"), 0o600))

	_, err := newTestClient(t, server, nil).Identify(context.Background(), bogus)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeImageProcessing))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestAssessHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health_assessment", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("details"), "treatment")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
		  "access_token": "h-1",
		  "result": {
		    "is_plant": {"probability": 0.99, "binary": true, "threshold": 0.5},
		    "is_healthy": {"probability": 0.2, "binary": false, "threshold": 0.525},
		    "disease": {"suggestions": [
		      {"id": "d1", "name": "Fungi", "probability": 0.7,
		       "details": {"local_name": "Fungi", "description": "Fungal infection.",
		                   "treatment": {"chemical": ["Fungicide"], "biological": ["Neem oil"]},
		                   "cause": null, "classification": ["Fungi"]}}
		    ]}
		  },
		  "status": "COMPLETED"
		}`))
	}))
	defer server.Close()

	result, err := newTestClient(t, server, nil).AssessHealth(context.Background(), writePhoto(t))
	require.NoError(t, err)

	assert.False(t, result.IsHealthy.Binary)
	require.Len(t, result.Diseases, 1)
	d := result.Diseases[0]
	assert.Equal(t, "Fungi", d.Name)
	assert.Equal(t, "Fungal infection.", d.Details.Description.Text)
	assert.Equal(t, []string{"Fungicide"}, d.Details.Treatment.Sections["chemical"])
	assert.False(t, d.Details.Cause.Known())

	health := result.Health()
	require.NotNil(t, health.Disease)
	assert.Len(t, health.Disease.Suggestions, 1)
}

func TestAssessHealth_NoDisease(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"is_plant":{"binary":true},"is_healthy":{"probability":0.95,"binary":true}}}`))
	}))
	defer server.Close()

	result, err := newTestClient(t, server, nil).AssessHealth(context.Background(), writePhoto(t))
	require.NoError(t, err)
	assert.True(t, result.IsHealthy.Binary)
	assert.NotNil(t, result.Diseases)
	assert.Empty(t, result.Diseases)
	assert.Nil(t, result.Health().Disease)
}

func TestAsk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/identification/tok-123/conversation", r.URL.Path)
		var body conversationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "How often should I water it?", body.Question)

		_, _ = w.Write([]byte(`{"messages":[
		  {"content":"How often should I water it?","type":"question"},
		  {"content":"Water when the top inch of soil is dry.","type":"answer"}
		],"remaining_calls":14}`))
	}))
	defer server.Close()

	answer, err := newTestClient(t, server, nil).Ask(context.Background(), "tok-123", "  How often should I water it? ")
	require.NoError(t, err)
	assert.Equal(t, "Water when the top inch of soil is dry.", answer.Answer)
	assert.Equal(t, 14, answer.RemainingCalls)
}

func TestAsk_Validation(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	client := newTestClient(t, server, nil)

	_, err := client.Ask(context.Background(), "", "why?")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = client.Ask(context.Background(), "tok", "   ")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
