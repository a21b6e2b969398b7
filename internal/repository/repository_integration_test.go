//go:build integration

package repository

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/modelvault/modelvault/internal/model"
	"github.com/modelvault/modelvault/internal/testutil"
)

func newTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetUsersSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset users schema: %v", err)
	}
	if err := testutil.ResetModelsSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset models schema: %v", err)
	}
	if err := testutil.ResetAuditSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset audit schema: %v", err)
	}

	return ctx, repo
}

// ============================================================================
// User Repository Integration Tests
// ============================================================================

func TestIntegrationUserRepository_CreateAndGet(t *testing.T) {
	ctx, repo := newTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueID("user"), model.PermUser)

	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	retrieved, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if retrieved.Email != user.Email {
		t.Errorf("Email mismatch: got %q, want %q", retrieved.Email, user.Email)
	}
	if retrieved.Perms != model.PermUser {
		t.Errorf("Perms = %d, want %d", retrieved.Perms, model.PermUser)
	}
}

func TestIntegrationUserRepository_DuplicateEmail(t *testing.T) {
	ctx, repo := newTestEnv(t)

	user1 := testutil.NewTestUser(t, testutil.UniqueID("user"), model.PermUser)
	user2 := testutil.NewTestUser(t, testutil.UniqueID("user"), model.PermUser)
	user2.Email = user1.Email

	if err := repo.CreateUser(ctx, user1); err != nil {
		t.Fatalf("CreateUser (first) failed: %v", err)
	}

	if err := repo.CreateUser(ctx, user2); !errors.Is(err, ErrEmailExists) {
		t.Errorf("Expected ErrEmailExists, got: %v", err)
	}
}

func TestIntegrationUserRepository_EmailLowercased(t *testing.T) {
	ctx, repo := newTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueID("user"), model.PermUser)
	user.Email = "Mixed.Case@Example.COM"

	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	retrieved, err := repo.GetUserByEmail(ctx, "mixed.case@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if retrieved.ID != user.ID {
		t.Errorf("lookup returned %q, want %q", retrieved.ID, user.ID)
	}
}

func TestIntegrationUserRepository_NotFound(t *testing.T) {
	ctx, repo := newTestEnv(t)

	if _, err := repo.GetUserByID(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got: %v", err)
	}

	exists, err := repo.UserExists(ctx, "missing")
	if err != nil {
		t.Fatalf("UserExists failed: %v", err)
	}
	if exists {
		t.Error("UserExists should be false for a missing user")
	}
}

// ============================================================================
// Model Repository Integration Tests
// ============================================================================

func TestIntegrationModelRepository_CreateAndGet(t *testing.T) {
	ctx, repo := newTestEnv(t)

	m := testutil.NewTestModel(t, "integration model", "alice", "bob")

	if err := repo.CreateModel(ctx, m); err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	retrieved, err := repo.GetModelByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetModelByID failed: %v", err)
	}
	if !slices.Equal(retrieved.OwnerIDs, []string{"alice", "bob"}) {
		t.Errorf("OwnerIDs = %v, want [alice bob] in order", retrieved.OwnerIDs)
	}
}

func TestIntegrationModelRepository_ListByOwner(t *testing.T) {
	ctx, repo := newTestEnv(t)

	m1 := testutil.NewTestModel(t, "first model", "alice")
	m2 := testutil.NewTestModel(t, "second model", "alice", "bob")
	m3 := testutil.NewTestModel(t, "third model", "bob")

	for _, m := range []*model.Model{m1, m2, m3} {
		if err := repo.CreateModel(ctx, m); err != nil {
			t.Fatalf("CreateModel failed: %v", err)
		}
	}

	models, err := repo.ListModelsByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("ListModelsByOwner failed: %v", err)
	}
	if len(models) != 2 {
		t.Errorf("listed %d models for alice, want 2", len(models))
	}

	models, err = repo.ListModelsByOwner(ctx, "nobody")
	if err != nil {
		t.Fatalf("ListModelsByOwner (empty) failed: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("listed %d models for unknown owner, want 0", len(models))
	}
}

func TestIntegrationModelRepository_ReplaceOwners(t *testing.T) {
	ctx, repo := newTestEnv(t)

	m := testutil.NewTestModel(t, "shared model", "alice")
	if err := repo.CreateModel(ctx, m); err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	updated, err := repo.ReplaceModelOwners(ctx, m.ID, []string{"bob", "carol"})
	if err != nil {
		t.Fatalf("ReplaceModelOwners failed: %v", err)
	}
	if !slices.Equal(updated.OwnerIDs, []string{"bob", "carol"}) {
		t.Errorf("OwnerIDs = %v, want full replacement", updated.OwnerIDs)
	}

	if _, err := repo.ReplaceModelOwners(ctx, "missing", []string{"x"}); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Expected ErrModelNotFound, got: %v", err)
	}
}

func TestIntegrationModelRepository_Delete(t *testing.T) {
	ctx, repo := newTestEnv(t)

	m := testutil.NewTestModel(t, "doomed model", "alice")
	if err := repo.CreateModel(ctx, m); err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	if err := repo.DeleteModel(ctx, m.ID); err != nil {
		t.Fatalf("DeleteModel failed: %v", err)
	}
	if _, err := repo.GetModelByID(ctx, m.ID); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Expected ErrModelNotFound after delete, got: %v", err)
	}
	if err := repo.DeleteModel(ctx, m.ID); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Expected ErrModelNotFound on second delete, got: %v", err)
	}
}

// ============================================================================
// Audit Repository Integration Tests
// ============================================================================

func TestIntegrationAuditRepository_BulkInsertIdempotent(t *testing.T) {
	ctx, repo := newTestEnv(t)

	events := []*model.AuditEvent{
		{
			ID:         "01HZZZZZZZZZZZZZZZZZZZZZZA",
			Action:     model.AuditModelCreated,
			ActorID:    "alice",
			ModelID:    "m1",
			OccurredAt: time.Now().UTC(),
		},
		{
			ID:            "01HZZZZZZZZZZZZZZZZZZZZZZB",
			Action:        model.AuditModelDeleted,
			ActorID:       "root",
			SubjectUserID: "alice",
			ModelID:       "m1",
			OccurredAt:    time.Now().UTC(),
		},
	}

	if err := repo.BulkInsertAuditEvents(ctx, events); err != nil {
		t.Fatalf("BulkInsertAuditEvents failed: %v", err)
	}
	// Replaying the same batch must not fail or duplicate.
	if err := repo.BulkInsertAuditEvents(ctx, events); err != nil {
		t.Fatalf("BulkInsertAuditEvents (replay) failed: %v", err)
	}

	stored, err := repo.ListAuditEventsForModel(ctx, "m1", 10)
	if err != nil {
		t.Fatalf("ListAuditEventsForModel failed: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("stored %d events, want 2 after idempotent replay", len(stored))
	}
	// ULID ordering: newest first.
	if len(stored) == 2 && stored[0].ID < stored[1].ID {
		t.Error("events should be ordered by id descending")
	}
}
