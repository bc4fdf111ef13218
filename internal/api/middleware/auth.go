package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/smartgarden/backend/internal/infrastructure/observability"
)

type contextKey string

const userIDKey contextKey = "user_id"

// TokenVerifier resolves an access token to the user it was issued for
type TokenVerifier interface {
	ValidateAccessToken(token string) (string, error)
}

// ContextWithUserID returns a context carrying the authenticated user id
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, or "" when unauthenticated
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// RequireAuth rejects requests without a valid bearer access token
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}

			userID, err := verifier.ValidateAccessToken(token)
			if err != nil {
				observability.LoggerFromContext(r.Context()).Debug().Err(err).Msg("rejected access token")
				unauthorized(w, "invalid or expired token")
				return
			}

			logger := observability.LoggerFromContext(r.Context()).With().Str("user_id", userID).Logger()
			ctx := observability.WithLogger(ContextWithUserID(r.Context(), userID), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="smartgarden"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
