package handlers

import (
	"context"
	"net/http"

	"github.com/smartgarden/backend/internal/api/middleware"
	"github.com/smartgarden/backend/internal/domain/entities"
)

// PlantService defines the interface for plant record operations
type PlantService interface {
	Create(ctx context.Context, callerID string, record *entities.PlantRecord) (*entities.PlantRecord, error)
	List(ctx context.Context, callerID, userID string) ([]*entities.PlantRecord, error)
	Get(ctx context.Context, callerID, id string) (*entities.PlantRecord, error)
	Update(ctx context.Context, callerID, id string, update entities.PlantUpdate) (*entities.PlantRecord, error)
	Delete(ctx context.Context, callerID, id string) error
	Search(ctx context.Context, callerID, userID, query string) ([]*entities.PlantRecord, error)
}

// PlantHandler handles plant record requests
type PlantHandler struct {
	service PlantService
}

// NewPlantHandler creates a new plant handler
func NewPlantHandler(service PlantService) *PlantHandler {
	return &PlantHandler{
		service: service,
	}
}

// CreatePlant handles POST /plants
func (h *PlantHandler) CreatePlant(w http.ResponseWriter, r *http.Request) {
	var record entities.PlantRecord
	if !decodeJSON(w, r, &record) {
		return
	}

	created, err := h.service.Create(r.Context(), middleware.UserIDFromContext(r.Context()), &record)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

// ListPlants handles GET /plants/{userId}
func (h *PlantHandler) ListPlants(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context(), middleware.UserIDFromContext(r.Context()), r.PathValue("userId"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, records)
}

// GetPlant handles GET /plants/{userId}/{id}
func (h *PlantHandler) GetPlant(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.UserIDFromContext(r.Context())
	if r.PathValue("userId") != callerID {
		respondWithError(w, http.StatusForbidden, "cannot access another user's plants")
		return
	}

	record, err := h.service.Get(r.Context(), callerID, r.PathValue("id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, record)
}

// UpdatePlant handles PUT /plants/{id}
func (h *PlantHandler) UpdatePlant(w http.ResponseWriter, r *http.Request) {
	var update entities.PlantUpdate
	if !decodeJSON(w, r, &update) {
		return
	}

	record, err := h.service.Update(r.Context(), middleware.UserIDFromContext(r.Context()), r.PathValue("id"), update)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, record)
}

// DeletePlant handles DELETE /plants/{id}
func (h *PlantHandler) DeletePlant(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// SearchPlants handles GET /plants/{userId}/search?q=
func (h *PlantHandler) SearchPlants(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Search(r.Context(), middleware.UserIDFromContext(r.Context()), r.PathValue("userId"), r.URL.Query().Get("q"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, records)
}
