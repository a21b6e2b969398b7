package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/modelvault/modelvault/internal/auth"
	"github.com/modelvault/modelvault/internal/metrics"
	"github.com/modelvault/modelvault/internal/model"
)

// RequireRole returns middleware that enforces a minimum role on the
// caller's permission mask. Must be applied after AccessGuard.
func RequireRole(recorder metrics.Recorder, role model.Role) func(http.Handler) http.Handler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeGuardError(w, http.StatusUnauthorized, "NO_TOKEN", "Authentication token required")
				return
			}

			if !id.Perms.Allows(role) {
				recorder.IncAuthDecision("forbidden")
				writeGuardError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is a convenience middleware for admin-only routes.
func RequireAdmin(recorder metrics.Recorder) func(http.Handler) http.Handler {
	return RequireRole(recorder, model.RoleAdmin)
}

// RequireSelfOrAdmin restricts a user-scoped route to the addressed user
// or an administrator. The non-admin caller must also hold the user bit:
// a token whose mask lacks it cannot touch even its own resources.
// Must be applied after AccessGuard, inside a route carrying a {userID}
// URL parameter.
func RequireSelfOrAdmin(recorder metrics.Recorder) func(http.Handler) http.Handler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeGuardError(w, http.StatusUnauthorized, "NO_TOKEN", "Authentication token required")
				return
			}

			if id.IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}

			userID := chi.URLParam(r, "userID")
			if userID == "" || userID != id.UserID || !id.Perms.Allows(model.RoleUser) {
				recorder.IncAuthDecision("forbidden")
				writeGuardError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
