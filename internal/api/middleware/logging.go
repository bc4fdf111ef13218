package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/smartgarden/backend/internal/infrastructure/observability"
)

// LoggingMiddleware logs HTTP requests and attaches a request logger to the context
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		logger := observability.LoggerFromContext(r.Context()).With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		ctx := observability.WithLogger(r.Context(), logger)

		rw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(ctx))

		event := logger.Info()
		if rw.statusCode >= http.StatusInternalServerError {
			event = logger.Error()
		} else if rw.statusCode >= http.StatusBadRequest {
			event = logger.Warn()
		}
		logRequest(event, rw.statusCode, time.Since(start))
	})
}

func logRequest(event *zerolog.Event, status int, duration time.Duration) {
	event.
		Int("status", status).
		Dur("duration", duration).
		Msg("request completed")
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *loggingResponseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}
