package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/modelvault/modelvault/internal/auth"
	"github.com/modelvault/modelvault/internal/model"
	"github.com/modelvault/modelvault/internal/service"
)

// ModelHandler handles HTTP requests for model lifecycle operations.
type ModelHandler struct {
	svc    *service.ModelService
	logger *slog.Logger
}

// NewModelHandler creates a new ModelHandler.
func NewModelHandler(svc *service.ModelService, logger *slog.Logger) *ModelHandler {
	return &ModelHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /v1/users/{userID}/models.
func (h *ModelHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	models, err := h.svc.ListForUser(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	responses := make([]model.ModelResponse, 0, len(models))
	for _, m := range models {
		responses = append(responses, h.svc.Respond(m))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"models": responses,
		"count":  len(responses),
	})
}

// Create handles POST /v1/users/{userID}/models.
// The created model is owned by exactly the addressed user; any owner
// list in the body is discarded.
func (h *ModelHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	actor := auth.MustIdentityFromContext(r.Context())

	var req model.ModelCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	m, err := h.svc.CreateForUser(r.Context(), actor.UserID, userID, req.Name)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("model_created",
		"model_id", m.ID,
		"owner_id", userID,
		"actor_id", actor.UserID,
	)

	writeJSON(w, http.StatusCreated, h.svc.Respond(m))
}

// Get handles GET /v1/users/{userID}/models/{modelID}.
func (h *ModelHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	modelID := chi.URLParam(r, "modelID")

	m, err := h.svc.GetForUserAndModel(r.Context(), userID, modelID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.svc.Respond(m))
}

// Update handles PUT /v1/users/{userID}/models/{modelID}.
// The body's owner list replaces the model's owner set wholesale.
func (h *ModelHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	modelID := chi.URLParam(r, "modelID")
	actor := auth.MustIdentityFromContext(r.Context())

	var req model.ModelUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	// The addressed user must see the model before touching its owners.
	if _, err := h.svc.GetForUserAndModel(r.Context(), userID, modelID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	// Reject everything before writing anything. A bad owner list must
	// not leave a rename behind, and a bad name must not leave a
	// replaced owner set behind.
	if req.Name != "" {
		if err := model.ValidateModelName(req.Name); err != nil {
			h.handleServiceError(w, err)
			return
		}
	}

	m, err := h.svc.UpdateOwners(r.Context(), actor.UserID, modelID, req.OwnerIDs)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if req.Name != "" {
		if m, err = h.svc.Rename(r.Context(), actor.UserID, modelID, req.Name); err != nil {
			h.handleServiceError(w, err)
			return
		}
	}

	h.logger.Info("model_updated",
		"model_id", m.ID,
		"owner_count", len(m.OwnerIDs),
		"actor_id", actor.UserID,
	)

	writeJSON(w, http.StatusOK, h.svc.Respond(m))
}

// Unshare handles DELETE /v1/users/{userID}/models/{modelID}.
// It removes the addressed user from the owner set; removing the last
// owner reclaims the record and its artifacts.
func (h *ModelHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	modelID := chi.URLParam(r, "modelID")
	actor := auth.MustIdentityFromContext(r.Context())

	m, reclaimed, err := h.svc.RemoveOwner(r.Context(), actor.UserID, modelID, userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("model_unshared",
		"model_id", m.ID,
		"removed_owner_id", userID,
		"reclaimed", reclaimed,
		"actor_id", actor.UserID,
	)

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /v1/models/{modelID}.
// Admin-only explicit deletion, independent of how many owners remain.
func (h *ModelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")
	actor := auth.MustIdentityFromContext(r.Context())

	m, err := h.svc.Delete(r.Context(), actor.UserID, modelID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("model_deleted",
		"model_id", m.ID,
		"owner_count", len(m.OwnerIDs),
		"actor_id", actor.UserID,
	)

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses. The message
// field carries the service's stable literal text.
func (h *ModelHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrModelOrUserNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", service.ErrModelOrUserNotFound.Error())
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", service.ErrUserNotFound.Error())
	case errors.Is(err, service.ErrModelNotFound):
		writeError(w, http.StatusNotFound, "MODEL_NOT_FOUND", service.ErrModelNotFound.Error())
	case errors.Is(err, service.ErrEmptyOwnerList):
		writeError(w, http.StatusBadRequest, "EMPTY_OWNER_LIST", service.ErrEmptyOwnerList.Error())
	case errors.Is(err, model.ErrInvalidModelName):
		writeError(w, http.StatusBadRequest, "INVALID_NAME", model.ErrInvalidModelName.Error())
	case errors.Is(err, service.ErrArtifactNotFound):
		writeError(w, http.StatusNotFound, "ARTIFACT_NOT_FOUND", service.ErrArtifactNotFound.Error())
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
