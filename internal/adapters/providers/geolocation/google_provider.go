package geolocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/smartgarden/backend/internal/domain/providers"
	"github.com/smartgarden/backend/internal/infrastructure/observability"
	apperrors "github.com/smartgarden/backend/pkg/errors"
)

const (
	googleGeocodeURL       = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultGeocodeCacheTTL = 60 * 60 * 24 * 30
	defaultHTTPTimeout     = 8 * time.Second
)

// GoogleProvider resolves a street address to coordinates with the Google Geocoding API.
// The first successful lookup is remembered for the life of the provider and, when a cache
// is given, across runs.
type GoogleProvider struct {
	apiKey     string
	address    string
	httpClient *http.Client
	cache      providers.CacheProvider
	baseURL    string
	fallback   providers.LocationProvider

	mu       sync.Mutex
	resolved *providers.Coordinates
}

// NewGoogleProvider creates a geocoding location provider. When geocoding fails the fallback
// provider is consulted so recognition can still proceed.
func NewGoogleProvider(apiKey, address string, cache providers.CacheProvider, fallback providers.LocationProvider) providers.LocationProvider {
	return NewGoogleProviderWithOptions(apiKey, address, cache, fallback, googleGeocodeURL, nil)
}

// NewGoogleProviderWithOptions allows overriding base URL and HTTP client (used for tests).
func NewGoogleProviderWithOptions(apiKey, address string, cache providers.CacheProvider, fallback providers.LocationProvider, baseURL string, httpClient *http.Client) providers.LocationProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = googleGeocodeURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &GoogleProvider{
		apiKey:     apiKey,
		address:    strings.TrimSpace(address),
		httpClient: httpClient,
		cache:      cache,
		baseURL:    baseURL,
		fallback:   fallback,
	}
}

// Locate geocodes the configured address
func (g *GoogleProvider) Locate(ctx context.Context) (providers.Coordinates, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.resolved != nil {
		return *g.resolved, nil
	}

	coords, err := g.geocode(ctx, g.address)
	if err != nil {
		if g.fallback == nil {
			return providers.Coordinates{}, err
		}
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("address", g.address).Msg("geocoding failed, using fallback location")
		return g.fallback.Locate(ctx)
	}

	g.resolved = coords
	return *coords, nil
}

func (g *GoogleProvider) geocode(ctx context.Context, address string) (*providers.Coordinates, error) {
	if address == "" {
		return nil, apperrors.NewValidationError("address is required")
	}

	cacheKey := "geo:geocode:" + hashKey(strings.ToLower(address))
	if coords, ok := g.cached(ctx, cacheKey); ok {
		return coords, nil
	}

	result, err := g.lookup(ctx, address)
	if err != nil {
		return nil, err
	}
	coords := &providers.Coordinates{Latitude: result.Geometry.Location.Lat, Longitude: result.Geometry.Location.Lng}
	observability.LoggerFromContext(ctx).Debug().
		Str("resolved", result.FormattedAddress).
		Float64("lat", coords.Latitude).
		Float64("lon", coords.Longitude).
		Msg("address geocoded")

	if g.cache != nil {
		if payload, err := json.Marshal(coords); err == nil {
			_ = g.cache.Set(ctx, cacheKey, payload, defaultGeocodeCacheTTL)
		}
	}
	return coords, nil
}

func (g *GoogleProvider) cached(ctx context.Context, key string) (*providers.Coordinates, bool) {
	if g.cache == nil {
		return nil, false
	}
	raw, err := g.cache.Get(ctx, key)
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	var coords providers.Coordinates
	if err := json.Unmarshal(raw, &coords); err != nil || (coords.Latitude == 0 && coords.Longitude == 0) {
		return nil, false
	}
	return &coords, true
}

// lookup returns the first geocoding match for address
func (g *GoogleProvider) lookup(ctx context.Context, address string) (*googleGeocodeResult, error) {
	if g.apiKey == "" {
		return nil, apperrors.NewValidationError("google maps api key is required")
	}

	params := url.Values{"address": []string{address}, "key": []string{g.apiKey}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build geocode request", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalError("geocode request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewExternalError(fmt.Sprintf("geocode request returned status %d", resp.StatusCode), nil)
	}

	var payload googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.NewExternalError("failed to decode geocode response", err)
	}

	switch payload.Status {
	case "OK":
		if len(payload.Results) == 0 {
			return nil, apperrors.NewNotFoundError("no geocoding result for " + address)
		}
		return &payload.Results[0], nil
	case "ZERO_RESULTS":
		return nil, apperrors.NewNotFoundError("no geocoding result for " + address)
	default:
		msg := "geocoding rejected: " + payload.Status
		if payload.ErrorMessage != "" {
			msg += " (" + payload.ErrorMessage + ")"
		}
		return nil, apperrors.NewExternalError(msg, nil)
	}
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

type googleGeocodeResponse struct {
	Status       string                `json:"status"`
	ErrorMessage string                `json:"error_message,omitempty"`
	Results      []googleGeocodeResult `json:"results"`
}

type googleGeocodeResult struct {
	FormattedAddress string         `json:"formatted_address"`
	Geometry         googleGeometry `json:"geometry"`
}

type googleGeometry struct {
	Location googleLocation `json:"location"`
}

type googleLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
