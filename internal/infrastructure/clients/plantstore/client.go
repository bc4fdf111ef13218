// Package plantstore is the HTTP client the garden CLI uses to reach the plant record API.
package plantstore

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
	"github.com/smartgarden/backend/internal/infrastructure/observability"
	"github.com/smartgarden/backend/pkg/config"
	apperrors "github.com/smartgarden/backend/pkg/errors"
	"github.com/smartgarden/backend/pkg/retry"
)

const maxErrorBodyBytes = 64 << 10

// Client calls the plant record API
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	readRetry  retry.Config
}

// NewClient creates a store client. timeout bounds each call.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: httpClient,
		readRetry: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      time.Second,
			BackoffFactor: 2,
		},
	}
}

// NewClientFromConfig creates a store client from the client section of the config
func NewClientFromConfig(cfg *config.ClientConfig) *Client {
	return NewClient(cfg.StoreURL, cfg.RequestTimeout, nil)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a new account
func (c *Client) Signup(ctx context.Context, email, password string) (*entities.User, error) {
	out := &entities.User{}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/signup", "", credentials{email, password}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Login exchanges credentials for a token pair
func (c *Client) Login(ctx context.Context, email, password string) (*entities.TokenPair, error) {
	out := &entities.TokenPair{}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", "", credentials{email, password}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Refresh exchanges a refresh token for a new pair
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*entities.TokenPair, error) {
	out := &entities.TokenPair{}
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/refresh", "", body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePlant submits a new record
func (c *Client) CreatePlant(ctx context.Context, token string, record *entities.PlantRecord) (*entities.PlantRecord, error) {
	out := &entities.PlantRecord{}
	if err := c.doJSON(ctx, http.MethodPost, "/plants", token, record, out); err != nil {
		return nil, submissionError(err)
	}
	return out, nil
}

// submissionError reports every rejected create except 401 as RECORD_SUBMISSION with its status;
// the specific error stays reachable as the cause
func submissionError(err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.StatusCode == 0 ||
		appErr.Type == apperrors.ErrorTypeAuthRequired || appErr.Type == apperrors.ErrorTypeRecordSubmission {
		return err
	}
	sub := apperrors.NewRecordSubmissionError("plant store rejected record: "+appErr.Message, appErr.StatusCode)
	sub.Err = appErr
	return sub
}

// ListPlants returns a user's records in insertion order
func (c *Client) ListPlants(ctx context.Context, token, userID string) ([]*entities.PlantRecord, error) {
	out := []*entities.PlantRecord{}
	if err := c.get(ctx, "/plants/"+url.PathEscape(userID), token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPlant returns a single record
func (c *Client) GetPlant(ctx context.Context, token, userID, id string) (*entities.PlantRecord, error) {
	out := &entities.PlantRecord{}
	if err := c.get(ctx, "/plants/"+url.PathEscape(userID)+"/"+url.PathEscape(id), token, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchPlants finds a user's records by name
func (c *Client) SearchPlants(ctx context.Context, token, userID, query string) ([]*entities.PlantRecord, error) {
	out := []*entities.PlantRecord{}
	path := "/plants/" + url.PathEscape(userID) + "/search?q=" + url.QueryEscape(query)
	if err := c.get(ctx, path, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePlant applies a partial update and returns the stored record
func (c *Client) UpdatePlant(ctx context.Context, token, id string, update entities.PlantUpdate) (*entities.PlantRecord, error) {
	out := &entities.PlantRecord{}
	if err := c.doJSON(ctx, http.MethodPut, "/plants/"+url.PathEscape(id), token, update, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeletePlant removes a record
func (c *Client) DeletePlant(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/plants/"+url.PathEscape(id), token, nil, nil)
}

// get retries transport failures; any HTTP answer is final
func (c *Client) get(ctx context.Context, path, token string, out interface{}) error {
	return retry.Do(ctx, c.readRetry, "plantstore", func(ctx context.Context) error {
		err := c.doJSON(ctx, http.MethodGet, path, token, nil, out)
		if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeExternal) {
			return retry.Permanent(err)
		}
		return err
	})
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return apperrors.NewInternalError("failed to encode request", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperrors.NewInternalError("failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.NewExternalError("plant store timed out", err)
		}
		return apperrors.NewExternalError("plant store unreachable", err)
	}
	defer resp.Body.Close()

	observability.LoggerFromContext(ctx).Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("plant store call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewExternalError("plant store returned an undecodable body", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	message := http.StatusText(resp.StatusCode)
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		message = payload.Error
	}

	var appErr *apperrors.AppError
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		appErr = apperrors.NewAuthRequiredError(message)
	case http.StatusNotFound:
		appErr = apperrors.NewNotFoundError(message)
	case http.StatusConflict:
		appErr = apperrors.NewConflictError(message)
	default:
		return apperrors.NewRecordSubmissionError(fmt.Sprintf("plant store rejected request: %s", message), resp.StatusCode)
	}
	appErr.StatusCode = resp.StatusCode
	return appErr
}
