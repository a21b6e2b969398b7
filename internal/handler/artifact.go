package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/modelvault/modelvault/internal/auth"
	"github.com/modelvault/modelvault/internal/service"
	"github.com/modelvault/modelvault/internal/storage"
)

// ArtifactHandler handles upload, download and deletion of model
// artifacts. Routes address one of two fixed variants: "primary" (the
// main mesh) or "variant" (the platform-specific rendition).
type ArtifactHandler struct {
	svc     *service.ModelService
	logger  *slog.Logger
	maxSize int64
}

// NewArtifactHandler creates a new ArtifactHandler. maxSize caps the
// accepted upload body in bytes.
func NewArtifactHandler(svc *service.ModelService, logger *slog.Logger, maxSize int64) *ArtifactHandler {
	return &ArtifactHandler{
		svc:     svc,
		logger:  logger,
		maxSize: maxSize,
	}
}

// resolveVariant maps the trailing path segment to a storage variant.
func resolveVariant(r *http.Request) (storage.Variant, bool) {
	switch chi.URLParam(r, "variant") {
	case "primary":
		return storage.VariantPrimary, true
	case "variant":
		return storage.VariantPlatform, true
	default:
		return "", false
	}
}

// Upload handles PUT /v1/users/{userID}/models/{modelID}/{variant}.
// Re-uploading overwrites the previous content.
func (h *ArtifactHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	modelID := chi.URLParam(r, "modelID")
	actor := auth.MustIdentityFromContext(r.Context())

	variant, ok := resolveVariant(r)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.maxSize)
	defer body.Close()

	m, err := h.svc.UploadArtifact(r.Context(), actor.UserID, userID, modelID, variant, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Artifact exceeds the maximum allowed size")
			return
		}
		h.handleError(w, err)
		return
	}

	h.logger.Info("artifact_uploaded",
		"model_id", m.ID,
		"variant", string(variant),
		"actor_id", actor.UserID,
	)

	writeJSON(w, http.StatusOK, h.svc.Respond(m))
}

// Download handles GET /v1/users/{userID}/models/{modelID}/{variant}.
func (h *ArtifactHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	modelID := chi.URLParam(r, "modelID")

	variant, ok := resolveVariant(r)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return
	}

	f, err := h.svc.OpenArtifact(r.Context(), userID, modelID, variant)
	if err != nil {
		h.handleError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, f); err != nil {
		// Response already in flight; the client sees a truncated body.
		h.logger.Warn("artifact stream interrupted",
			"model_id", modelID,
			"variant", string(variant),
			"error", err,
		)
	}
}

// Delete handles DELETE /v1/users/{userID}/models/{modelID}/{variant}.
// Addressing an artifact that was never uploaded is a 404, unlike the
// tolerant deletes inside cascade reclamation.
func (h *ArtifactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	modelID := chi.URLParam(r, "modelID")
	actor := auth.MustIdentityFromContext(r.Context())

	variant, ok := resolveVariant(r)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return
	}

	if err := h.svc.DeleteArtifact(r.Context(), actor.UserID, userID, modelID, variant); err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("artifact_deleted",
		"model_id", modelID,
		"variant", string(variant),
		"actor_id", actor.UserID,
	)

	w.WriteHeader(http.StatusNoContent)
}

// handleError maps service and storage errors to HTTP responses.
func (h *ArtifactHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrModelOrUserNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", service.ErrModelOrUserNotFound.Error())
	case errors.Is(err, storage.ErrArtifactNotFound):
		writeError(w, http.StatusNotFound, "ARTIFACT_NOT_FOUND", storage.ErrArtifactNotFound.Error())
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
