package routes

import (
	"net/http"

	"github.com/smartgarden/backend/internal/api/handlers"
	"github.com/smartgarden/backend/internal/api/middleware"
	"github.com/smartgarden/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	plantHandler  *handlers.PlantHandler
	authHandler   *handlers.AuthHandler
	healthHandler *handlers.HealthHandler

	verifier       middleware.TokenVerifier
	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	plantHandler *handlers.PlantHandler,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	verifier middleware.TokenVerifier,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		plantHandler:   plantHandler,
		authHandler:    authHandler,
		healthHandler:  healthHandler,
		verifier:       verifier,
		allowedOrigins: allowedOrigins,
		metrics:        metrics,
	}
}

// SetupRoutes registers all routes and returns the wrapped handler
func (r *Router) SetupRoutes() http.Handler {
	if r.healthHandler != nil {
		r.mux.HandleFunc("GET /health", r.healthHandler.Health)
	}

	// Account endpoints
	if r.authHandler != nil {
		r.mux.HandleFunc("POST /api/auth/signup", r.authHandler.Signup)
		r.mux.HandleFunc("POST /api/auth/login", r.authHandler.Login)
		r.mux.HandleFunc("POST /api/auth/refresh", r.authHandler.Refresh)
	}

	// Plant record endpoints, all behind a bearer token
	auth := middleware.RequireAuth(r.verifier)
	r.mux.Handle("POST /plants", auth(http.HandlerFunc(r.plantHandler.CreatePlant)))
	r.mux.Handle("GET /plants/{userId}", auth(http.HandlerFunc(r.plantHandler.ListPlants)))
	r.mux.Handle("GET /plants/{userId}/search", auth(http.HandlerFunc(r.plantHandler.SearchPlants)))
	r.mux.Handle("GET /plants/{userId}/{id}", auth(http.HandlerFunc(r.plantHandler.GetPlant)))
	r.mux.Handle("PUT /plants/{id}", auth(http.HandlerFunc(r.plantHandler.UpdatePlant)))
	r.mux.Handle("DELETE /plants/{id}", auth(http.HandlerFunc(r.plantHandler.DeletePlant)))

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.Compression(handler)
	handler = middleware.ETag(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
