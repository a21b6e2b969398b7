package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelvault/modelvault/internal/auth"
	"github.com/modelvault/modelvault/internal/model"
	"github.com/modelvault/modelvault/internal/service"
)

// AuthHandler handles login and identity echo.
type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger,
	}
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "MISSING_CREDENTIALS", "Email and password are required")
		return
	}

	token, user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", service.ErrInvalidCredentials.Error())
			return
		}
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	h.logger.Info("login_succeeded", "user_id", user.ID)

	writeJSON(w, http.StatusOK, model.LoginResponse{
		Token: token,
		User:  user.ToResponse(),
	})
}

// Me handles GET /v1/auth/me. It echoes the identity embedded in the
// presented token; no store lookup happens here, so a stale token shows
// the permissions it was issued with.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := auth.MustIdentityFromContext(r.Context())

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": id.UserID,
		"email":   id.Email,
		"name":    id.Name,
		"perms":   int(id.Perms),
		"role":    id.Perms.Role().String(),
	})
}
