package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/modelvault/modelvault/internal/auth"
	"github.com/modelvault/modelvault/internal/model"
)

// serveWithIdentity routes the request through a chi router so URL params
// resolve, with the given identity already injected.
func serveWithIdentity(t *testing.T, mw func(http.Handler) http.Handler, id *model.Identity, path string) *httptest.ResponseRecorder {
	t.Helper()

	router := chi.NewRouter()
	router.With(mw).Get("/v1/users/{userID}/models", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", path, nil)
	if id != nil {
		req = req.WithContext(auth.ContextWithIdentity(context.Background(), *id))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequireSelfOrAdmin(t *testing.T) {
	t.Parallel()

	mw := RequireSelfOrAdmin(nil)

	tests := []struct {
		name       string
		identity   *model.Identity
		path       string
		wantStatus int
	}{
		{
			name:       "self with user bit",
			identity:   &model.Identity{UserID: "alice", Perms: model.PermUser},
			path:       "/v1/users/alice/models",
			wantStatus: http.StatusOK,
		},
		{
			name:       "self without user bit",
			identity:   &model.Identity{UserID: "alice", Perms: 0},
			path:       "/v1/users/alice/models",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "other user",
			identity:   &model.Identity{UserID: "alice", Perms: model.PermUser},
			path:       "/v1/users/bob/models",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "admin reaches any user",
			identity:   &model.Identity{UserID: "root", Perms: model.PermAdmin},
			path:       "/v1/users/bob/models",
			wantStatus: http.StatusOK,
		},
		{
			name:       "admin without user bit still passes",
			identity:   &model.Identity{UserID: "root", Perms: model.PermAdmin},
			path:       "/v1/users/root/models",
			wantStatus: http.StatusOK,
		},
		{
			name:       "super bit implies everything",
			identity:   &model.Identity{UserID: "ops", Perms: model.PermSuper},
			path:       "/v1/users/bob/models",
			wantStatus: http.StatusOK,
		},
		{
			name:       "no identity",
			identity:   nil,
			path:       "/v1/users/alice/models",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := serveWithIdentity(t, mw, tt.identity, tt.path)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	mw := RequireAdmin(nil)

	tests := []struct {
		name       string
		identity   *model.Identity
		wantStatus int
	}{
		{"admin", &model.Identity{UserID: "root", Perms: model.PermAdmin}, http.StatusOK},
		{"admin and user bits", &model.Identity{UserID: "root", Perms: model.PermAdmin | model.PermUser}, http.StatusOK},
		{"plain user", &model.Identity{UserID: "alice", Perms: model.PermUser}, http.StatusForbidden},
		{"zero mask", &model.Identity{UserID: "alice", Perms: 0}, http.StatusForbidden},
		{"super bit", &model.Identity{UserID: "ops", Perms: model.PermSuper}, http.StatusOK},
		{"no identity", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := serveWithIdentity(t, mw, tt.identity, "/v1/users/alice/models")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireRole_None(t *testing.T) {
	t.Parallel()

	// RoleNone gates nothing beyond authentication itself.
	mw := RequireRole(nil, model.RoleNone)

	rec := serveWithIdentity(t, mw, &model.Identity{UserID: "alice", Perms: 0}, "/v1/users/alice/models")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for zero mask under RoleNone", rec.Code)
	}
}
