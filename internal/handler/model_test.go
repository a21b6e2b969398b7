package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/modelvault/modelvault/internal/auth"
	"github.com/modelvault/modelvault/internal/middleware"
	"github.com/modelvault/modelvault/internal/model"
	"github.com/modelvault/modelvault/internal/repository"
	"github.com/modelvault/modelvault/internal/service"
	"github.com/modelvault/modelvault/internal/storage"
)

// memStore is an in-memory service.Store for handler tests.
type memStore struct {
	users  map[string]*model.User
	models map[string]*model.Model
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[string]*model.User),
		models: make(map[string]*model.Model),
	}
}

func (s *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *memStore) UserExists(_ context.Context, id string) (bool, error) {
	_, ok := s.users[id]
	return ok, nil
}

func (s *memStore) ListUsers(_ context.Context) ([]*model.User, error) {
	out := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) GetModelByID(_ context.Context, id string) (*model.Model, error) {
	m, ok := s.models[id]
	if !ok {
		return nil, repository.ErrModelNotFound
	}
	return m, nil
}

func (s *memStore) ListModelsByOwner(_ context.Context, userID string) ([]*model.Model, error) {
	var out []*model.Model
	for _, m := range s.models {
		if m.OwnedBy(userID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) CreateModel(_ context.Context, m *model.Model) error {
	s.models[m.ID] = m
	return nil
}

func (s *memStore) ReplaceModelOwners(_ context.Context, modelID string, ownerIDs []string) (*model.Model, error) {
	m, ok := s.models[modelID]
	if !ok {
		return nil, repository.ErrModelNotFound
	}
	m.OwnerIDs = slices.Clone(ownerIDs)
	m.UpdatedAt = time.Now()
	return m, nil
}

func (s *memStore) RenameModel(_ context.Context, modelID, name string) (*model.Model, error) {
	m, ok := s.models[modelID]
	if !ok {
		return nil, repository.ErrModelNotFound
	}
	m.Name = name
	return m, nil
}

func (s *memStore) DeleteModel(_ context.Context, id string) error {
	if _, ok := s.models[id]; !ok {
		return repository.ErrModelNotFound
	}
	delete(s.models, id)
	return nil
}

// apiFixture wires handlers into a router the way main does, with the
// token guard replaced by direct identity injection.
type apiFixture struct {
	router    *chi.Mux
	store     *memStore
	artifacts *storage.ArtifactStore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := newMemStore()
	artifacts, err := storage.NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("artifact store: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewModelService(store, artifacts, nil, nil, logger, nil)

	modelHandler := NewModelHandler(svc, logger)
	artifactHandler := NewArtifactHandler(svc, logger, 1<<20)
	userHandler := NewUserHandler(store, logger)

	router := chi.NewRouter()
	router.Route("/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(middleware.RequireAdmin(nil)).Get("/", userHandler.List)
			r.Route("/{userID}", func(r chi.Router) {
				r.With(middleware.RequireAdmin(nil)).Get("/", userHandler.Get)
				r.Route("/models", func(r chi.Router) {
					r.Use(middleware.RequireSelfOrAdmin(nil))
					r.Get("/", modelHandler.List)
					r.Post("/", modelHandler.Create)
					r.Route("/{modelID}", func(r chi.Router) {
						r.Get("/", modelHandler.Get)
						r.Put("/", modelHandler.Update)
						r.Delete("/", modelHandler.Unshare)
						r.Route("/{variant}", func(r chi.Router) {
							r.Put("/", artifactHandler.Upload)
							r.Get("/", artifactHandler.Download)
							r.Delete("/", artifactHandler.Delete)
						})
					})
				})
			})
		})
		r.With(middleware.RequireAdmin(nil)).Delete("/models/{modelID}", modelHandler.Delete)
	})

	return &apiFixture{router: router, store: store, artifacts: artifacts}
}

func (fx *apiFixture) addUser(id string, perms model.Perm) {
	fx.store.users[id] = &model.User{ID: id, Email: id + "@example.com", Perms: perms}
}

func (fx *apiFixture) addModel(id, name string, owners ...string) {
	fx.store.models[id] = &model.Model{ID: id, Name: name, OwnerIDs: owners, CreatedAt: time.Now(), UpdatedAt: time.Now()}
}

// do executes a request as the given user, or anonymously for userID "".
func (fx *apiFixture) do(t *testing.T, userID string, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		u, ok := fx.store.users[userID]
		if !ok {
			t.Fatalf("unknown test user %q", userID)
		}
		req = req.WithContext(auth.ContextWithIdentity(req.Context(), model.IdentityOf(u)))
	}
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func decodeModel(t *testing.T, body io.Reader) model.ModelResponse {
	t.Helper()

	var resp model.ModelResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode model response: %v", err)
	}
	return resp
}

func decodeError(t *testing.T, body io.Reader) ErrorBody {
	t.Helper()

	var resp ErrorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp.Error
}

func TestCreateModel_OwnerIsAddressedUser(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	fx.addUser("alice", model.PermUser)

	// The body's owner list must be discarded.
	body := []byte(`{"name":"teapot scan","owner_ids":["bob","mallory"]}`)
	rec := fx.do(t, "alice", "POST", "/v1/users/alice/models", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	resp := decodeModel(t, rec.Body)
	if !slices.Equal(resp.OwnerIDs, []string{"alice"}) {
		t.Errorf("OwnerIDs = %v, want exactly [alice]", resp.OwnerIDs)
	}
	if resp.HasPrimary || resp.HasVariant {
		t.Error("fresh model must report no artifacts")
	}
}

func TestCreateModel_ShortName(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	fx.addUser("alice", model.PermUser)

	rec := fx.do(t, "alice", "POST", "/v1/users/alice/models", []byte(`{"name":"ab"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if e := decodeError(t, rec.Body); e.Message != "model name must be between 3 and 100 characters" {
		t.Errorf("message = %q, want the stable literal", e.Message)
	}
}

func TestGetModel_SharedNotFoundMessage(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	fx.addUser("alice", model.PermUser)
	fx.addUser("root", model.PermAdmin)
	fx.addModel("m1", "private model", "root")

	tests := []struct {
		name string
		path string
	}{
		{"model missing", "/v1/users/alice/models/nope"},
		{"model not owned", "/v1/users/alice/models/m1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := fx.do(t, "alice", "GET", tt.path, nil)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", rec.Code)
			}
			if e := decodeError(t, rec.Body); e.Message != "model or user not found" {
				t.Errorf("message = %q, want shared not-found literal", e.Message)
			}
		})
	}
}

func TestGetModel_ForbiddenBeforeNotFound(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	fx.addUser("alice", model.PermUser)
	fx.addUser("bob", model.PermUser)
	fx.addModel("m1", "bobs model", "bob")

	// alice probing bob's namespace is rejected by the role check; she
	// never learns whether the model exists.
	rec := fx.do(t, "alice", "GET", "/v1/users/bob/models/m1", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}

	rec = fx.do(t, "alice", "GET", "/v1/users/bob/models/nonexistent", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status for missing model = %d, want the same 403", rec.Code)
	}
}

func TestUpdateOwners_EmptyListIs400(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	fx.addUser("alice", model.PermUser)
	fx.addModel("m1", "shared model", "alice")

	rec := fx.do(t, "alice", "PUT", "/v1/users/alice/models/m1", []byte(`{"owner_ids":[]}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if e := decodeError(t, rec.Body); e.Message != "owner list must not be empty" {
		t.Errorf("message = %q, want the stable literal", e.Message)
	}
}

func TestUpdateOwners_UnknownOwnerIs404(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	fx.addUser("alice", model.PermUser)
	fx.addModel("m1", "shared model", "alice")

	rec := fx.do(t, "alice", "PUT", "/v1/users/alice/models/m1", []byte(`{"owner_ids":["alice","ghost"]}`))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if e := decodeError(t, rec.Body); e.Message != "user not found" {
		t.Errorf("message = %q, want %q", e.Message, "user not found")
	}
}

func TestUpdate_RenameAndReplaceOwnersTogether(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	fx.addUser("alice", model.PermUser)
	fx.addUser("bob", model.PermUser)
	fx.addModel("m1", "shared model", "alice")

	rec := fx.do(t, "alice", "PUT", "/v1/users/alice/models/m1", []byte(`{"name":"renamed-model","owner_ids":["alice","bob"]}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	resp := decodeModel(t, rec.Body)
	if resp.Name != "renamed-model" {
		t.Errorf("name = %q, want %q", resp.Name, "renamed-model")
	}
	if !slices.Equal(resp.OwnerIDs, []string{"alice", "bob"}) {
		t.Errorf("owners = %v, want [alice bob]", resp.OwnerIDs)
	}
}

func TestUpdate_RejectedRequestLeavesModelUntouched(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"rename with empty owner list", `{"name":"renamed-model","owner_ids":[]}`, http.StatusBadRequest},
		{"rename with unresolved owner", `{"name":"renamed-model","owner_ids":["ghost"]}`, http.StatusNotFound},
		{"valid owners with short name", `{"name":"ab","owner_ids":["alice","bob"]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fx := newAPIFixture(t)
			fx.addUser("alice", model.PermUser)
			fx.addUser("bob", model.PermUser)
			fx.addModel("m1", "shared model", "alice")

			rec := fx.do(t, "alice", "PUT", "/v1/users/alice/models/m1", []byte(tt.body))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}

			m := fx.store.models["m1"]
			if m.Name != "shared model" {
				t.Errorf("name = %q after rejected update, want %q", m.Name, "shared model")
			}
			if !slices.Equal(m.OwnerIDs, []string{"alice"}) {
				t.Errorf("owners = %v after rejected update, want [alice]", m.OwnerIDs)
			}
		})
	}
}

func TestUnshare_LastOwnerCascades(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	fx.addUser("alice", model.PermUser)
	fx.addModel("m1", "solo model", "alice")
	if err := fx.artifacts.Write("m1", storage.VariantPrimary, bytes.NewReader([]byte("mesh"))); err != nil {
		t.Fatalf("seed artifact: %v", err)
	}

	rec := fx.do(t, "alice", "DELETE", "/v1/users/alice/models/m1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	if _, ok := fx.store.models["m1"]; ok {
		t.Error("record must be gone after last-owner unshare")
	}
	if fx.artifacts.Exists("m1", storage.VariantPrimary) {
		t.Error("artifact must be gone after cascade")
	}
}

func TestUnshare_DistinctNotFoundMessages(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	fx.addUser("root", model.PermAdmin)
	fx.addUser("alice", model.PermUser)
	fx.addModel("m1", "some model", "alice")

	// Delete paths keep user and model failures apart, unlike reads.
	rec := fx.do(t, "root", "DELETE", "/v1/users/ghost/models/m1", nil)
	if e := decodeError(t, rec.Body); rec.Code != http.StatusNotFound || e.Message != "user not found" {
		t.Errorf("user-missing: status=%d message=%q, want 404 %q", rec.Code, e.Message, "user not found")
	}

	rec = fx.do(t, "root", "DELETE", "/v1/users/alice/models/nope", nil)
	if e := decodeError(t, rec.Body); rec.Code != http.StatusNotFound || e.Message != "model not found" {
		t.Errorf("model-missing: status=%d message=%q, want 404 %q", rec.Code, e.Message, "model not found")
	}
}

func TestExplicitDelete_AdminOnly(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	fx.addUser("alice", model.PermUser)
	fx.addUser("root", model.PermAdmin)
	fx.addModel("m1", "shared model", "alice", "root")

	rec := fx.do(t, "alice", "DELETE", "/v1/models/m1", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403", rec.Code)
	}

	rec = fx.do(t, "root", "DELETE", "/v1/models/m1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin status = %d, want 204", rec.Code)
	}
	if _, ok := fx.store.models["m1"]; ok {
		t.Error("record must be gone after explicit delete")
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	fx.addUser("alice", model.PermUser)
	fx.addModel("m1", "solo model", "alice")

	rec := fx.do(t, "alice", "PUT", "/v1/users/alice/models/m1/primary", []byte("mesh-bytes"))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeModel(t, rec.Body)
	if !resp.HasPrimary || resp.HasVariant {
		t.Errorf("flags = primary:%v variant:%v, want primary only", resp.HasPrimary, resp.HasVariant)
	}

	rec = fx.do(t, "alice", "GET", "/v1/users/alice/models/m1/primary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	if rec.Body.String() != "mesh-bytes" {
		t.Errorf("downloaded body = %q, want uploaded bytes", rec.Body.String())
	}

	rec = fx.do(t, "alice", "DELETE", "/v1/users/alice/models/m1/primary", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = fx.do(t, "alice", "DELETE", "/v1/users/alice/models/m1/primary", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestArtifact_UnknownVariantSegment(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	fx.addUser("alice", model.PermUser)
	fx.addModel("m1", "solo model", "alice")

	rec := fx.do(t, "alice", "GET", "/v1/users/alice/models/m1/texture", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown variant segment", rec.Code)
	}
}

func TestArtifactDownload_Missing(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	fx.addUser("alice", model.PermUser)
	fx.addModel("m1", "solo model", "alice")

	rec := fx.do(t, "alice", "GET", "/v1/users/alice/models/m1/variant", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if e := decodeError(t, rec.Body); e.Code != "ARTIFACT_NOT_FOUND" {
		t.Errorf("code = %q, want ARTIFACT_NOT_FOUND", e.Code)
	}
}

func TestUserEndpoints_AdminRead(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t)
	fx.addUser("alice", model.PermUser)
	fx.addUser("root", model.PermAdmin)

	rec := fx.do(t, "alice", "GET", "/v1/users/", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin list status = %d, want 403", rec.Code)
	}

	rec = fx.do(t, "root", "GET", "/v1/users/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list status = %d", rec.Code)
	}

	var listResp struct {
		Users []model.UserResponse `json:"users"`
		Count int                  `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if listResp.Count != 2 {
		t.Errorf("count = %d, want 2", listResp.Count)
	}

	rec = fx.do(t, "root", "GET", "/v1/users/ghost/", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing user status = %d, want 404", rec.Code)
	}
}
