// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/modelvault/modelvault/internal/metrics"
	"github.com/modelvault/modelvault/internal/model"
	"github.com/modelvault/modelvault/internal/repository"
	"github.com/modelvault/modelvault/internal/storage"
)

// Service errors. Messages are stable literals: clients and tests match
// on exact text. Read paths collapse "user missing" and "model missing
// or not visible" into one shared message so callers cannot probe for
// the existence of models they cannot see; delete paths keep the two
// apart so operators get precise diagnostics.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrModelNotFound       = errors.New("model not found")
	ErrModelOrUserNotFound = errors.New("model or user not found")
	ErrEmptyOwnerList      = errors.New("owner list must not be empty")
	ErrArtifactNotFound    = storage.ErrArtifactNotFound
)

// Store is the persistence surface the lifecycle service needs.
// *repository.Repository satisfies it.
type Store interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UserExists(ctx context.Context, id string) (bool, error)
	GetModelByID(ctx context.Context, id string) (*model.Model, error)
	ListModelsByOwner(ctx context.Context, userID string) ([]*model.Model, error)
	CreateModel(ctx context.Context, m *model.Model) error
	ReplaceModelOwners(ctx context.Context, modelID string, ownerIDs []string) (*model.Model, error)
	RenameModel(ctx context.Context, modelID, name string) (*model.Model, error)
	DeleteModel(ctx context.Context, id string) error
}

// Artifacts is the filesystem surface. *storage.ArtifactStore satisfies it.
type Artifacts interface {
	Exists(modelID string, variant storage.Variant) bool
	Write(modelID string, variant storage.Variant, content io.Reader) error
	Open(modelID string, variant storage.Variant) (*os.File, error)
	Delete(modelID string, variant storage.Variant) error
}

// AuditSink receives lifecycle events without blocking the request.
type AuditSink interface {
	RecordAsync(event model.AuditEvent)
}

// UserCache is an optional read-through cache for user records. Cached
// entries never carry the password hash; login always hits the store.
type UserCache interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	SetUser(ctx context.Context, u *model.User) error
}

// ModelService implements the shared-ownership resource lifecycle: it
// owns the rules for how a model's owner set and its artifacts evolve.
type ModelService struct {
	store     Store
	artifacts Artifacts
	audit     AuditSink
	userCache UserCache
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewModelService creates a ModelService. audit and userCache may be nil.
func NewModelService(store Store, artifacts Artifacts, audit AuditSink, userCache UserCache, logger *slog.Logger, recorder metrics.Recorder) *ModelService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ModelService{
		store:     store,
		artifacts: artifacts,
		audit:     audit,
		userCache: userCache,
		logger:    logger.With("component", "service.model"),
		metrics:   recorder,
	}
}

// userExists checks user existence through the cache when available.
func (s *ModelService) userExists(ctx context.Context, id string) (bool, error) {
	// Without a cache to fill there is no reason to fetch the row.
	if s.userCache == nil {
		return s.store.UserExists(ctx, id)
	}

	if cached, err := s.userCache.GetUser(ctx, id); err == nil && cached != nil {
		return true, nil
	}

	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}

	_ = s.userCache.SetUser(ctx, user)
	return true, nil
}

// record emits an audit event if a sink is configured.
func (s *ModelService) record(action, actorID, subjectUserID, modelID string) {
	if s.audit == nil {
		return
	}
	s.audit.RecordAsync(model.AuditEvent{
		Action:        action,
		ActorID:       actorID,
		SubjectUserID: subjectUserID,
		ModelID:       modelID,
		OccurredAt:    time.Now(),
	})
}

// CreateForUser persists a new model owned by exactly ownerUserID.
// Any owner list a client supplied alongside the request has already
// been discarded: ownership at creation is never taken from the payload.
func (s *ModelService) CreateForUser(ctx context.Context, actorID, ownerUserID, name string) (*model.Model, error) {
	if err := model.ValidateModelName(name); err != nil {
		return nil, err
	}

	exists, err := s.userExists(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("resolve owner: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	now := time.Now()
	m := &model.Model{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerIDs:  []string{ownerUserID},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateModel(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("model created",
		slog.String("model_id", m.ID),
		slog.String("owner_id", ownerUserID),
		slog.String("actor_id", actorID),
	)
	s.metrics.IncModelCreated()
	s.record(model.AuditModelCreated, actorID, ownerUserID, m.ID)

	return m, nil
}

// ListForUser returns every model whose owner set contains userID,
// each with its complete owner set.
func (s *ModelService) ListForUser(ctx context.Context, userID string) ([]*model.Model, error) {
	exists, err := s.userExists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	return s.store.ListModelsByOwner(ctx, userID)
}

// GetForUserAndModel returns the model if it exists and lists userID as
// an owner. A missing user, a missing model and a model the user does
// not own all surface as the same ErrModelOrUserNotFound.
func (s *ModelService) GetForUserAndModel(ctx context.Context, userID, modelID string) (*model.Model, error) {
	exists, err := s.userExists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if !exists {
		return nil, ErrModelOrUserNotFound
	}

	m, err := s.store.GetModelByID(ctx, modelID)
	if err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return nil, ErrModelOrUserNotFound
		}
		return nil, err
	}
	if !m.OwnedBy(userID) {
		return nil, ErrModelOrUserNotFound
	}

	return m, nil
}

// UpdateOwners replaces the owner set wholesale. Validation is
// all-or-nothing: every new owner must resolve to an existing user
// before any mutation happens, and an empty list is a validation error,
// never an implicit delete.
func (s *ModelService) UpdateOwners(ctx context.Context, actorID, modelID string, newOwnerIDs []string) (*model.Model, error) {
	if len(newOwnerIDs) == 0 {
		return nil, ErrEmptyOwnerList
	}

	if _, err := s.store.GetModelByID(ctx, modelID); err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}

	// Set semantics: drop duplicates, keep first-occurrence order.
	owners := make([]string, 0, len(newOwnerIDs))
	seen := make(map[string]struct{}, len(newOwnerIDs))
	for _, id := range newOwnerIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		exists, err := s.userExists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve owner: %w", err)
		}
		if !exists {
			return nil, ErrUserNotFound
		}
		owners = append(owners, id)
	}

	updated, err := s.store.ReplaceModelOwners(ctx, modelID, owners)
	if err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}

	s.logger.Info("model owners replaced",
		slog.String("model_id", modelID),
		slog.Int("owner_count", len(owners)),
		slog.String("actor_id", actorID),
	)
	s.metrics.IncModelShared()
	s.record(model.AuditModelShared, actorID, "", modelID)

	return updated, nil
}

// Rename changes the model's display name, subject to the same length
// constraint as creation.
func (s *ModelService) Rename(ctx context.Context, actorID, modelID, name string) (*model.Model, error) {
	if err := model.ValidateModelName(name); err != nil {
		return nil, err
	}

	m, err := s.store.RenameModel(ctx, modelID, name)
	if err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}

	s.logger.Info("model renamed",
		slog.String("model_id", modelID),
		slog.String("actor_id", actorID),
	)

	return m, nil
}

// RemoveOwner takes userID out of the model's owner set. While owners
// remain the record and artifacts persist; the moment the set empties
// the record and both artifacts are reclaimed as one logical operation.
// The returned artifactsDeleted reports whether reclamation ran.
func (s *ModelService) RemoveOwner(ctx context.Context, actorID, modelID, userID string) (*model.Model, bool, error) {
	exists, err := s.userExists(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("resolve user: %w", err)
	}
	if !exists {
		return nil, false, ErrUserNotFound
	}

	m, err := s.store.GetModelByID(ctx, modelID)
	if err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return nil, false, ErrModelNotFound
		}
		return nil, false, err
	}
	if !m.OwnedBy(userID) {
		return nil, false, ErrModelNotFound
	}

	remaining := m.WithoutOwner(userID)

	if len(remaining) > 0 {
		updated, err := s.store.ReplaceModelOwners(ctx, modelID, remaining)
		if err != nil {
			return nil, false, err
		}

		s.logger.Info("model owner removed",
			slog.String("model_id", modelID),
			slog.String("removed_owner_id", userID),
			slog.Int("remaining_owners", len(remaining)),
			slog.String("actor_id", actorID),
		)
		s.metrics.IncModelUnshared()
		s.record(model.AuditModelUnshared, actorID, userID, modelID)

		return updated, false, nil
	}

	// Orphan reclamation: the database record goes first because it is
	// the authoritative fact of whether the model still exists for any
	// owner. A leftover file is a recoverable leak; a record pointing
	// at deleted files would be a correctness violation.
	if err := s.store.DeleteModel(ctx, modelID); err != nil {
		return nil, false, err
	}

	if err := s.removeArtifacts(modelID); err != nil {
		// The record is already gone and stays gone; surface the
		// storage failure without resurrecting anything.
		return nil, false, err
	}

	s.logger.Info("model reclaimed after last owner removed",
		slog.String("model_id", modelID),
		slog.String("removed_owner_id", userID),
		slog.String("actor_id", actorID),
	)
	s.metrics.IncModelDeleted("cascade")
	s.record(model.AuditModelCascadeDelete, actorID, userID, modelID)

	m.OwnerIDs = []string{}
	return m, true, nil
}

// Delete removes the model record and both artifacts unconditionally,
// regardless of how many owners remain. This is the explicit,
// owner-count-independent operation, audited distinctly from cascade
// reclamation.
func (s *ModelService) Delete(ctx context.Context, actorID, modelID string) (*model.Model, error) {
	m, err := s.store.GetModelByID(ctx, modelID)
	if err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}

	if err := s.store.DeleteModel(ctx, modelID); err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}

	if err := s.removeArtifacts(modelID); err != nil {
		return nil, err
	}

	s.logger.Info("model explicitly deleted",
		slog.String("model_id", modelID),
		slog.Int("owner_count", len(m.OwnerIDs)),
		slog.String("actor_id", actorID),
	)
	s.metrics.IncModelDeleted("explicit")
	s.record(model.AuditModelDeleted, actorID, "", modelID)

	return m, nil
}

// removeArtifacts deletes both variants, tolerating files that were
// never uploaded. Any other storage failure is surfaced.
func (s *ModelService) removeArtifacts(modelID string) error {
	for _, variant := range []storage.Variant{storage.VariantPrimary, storage.VariantPlatform} {
		if err := s.artifacts.Delete(modelID, variant); err != nil {
			if errors.Is(err, storage.ErrArtifactNotFound) {
				continue
			}
			return fmt.Errorf("remove %s artifact: %w", variant, err)
		}
	}
	return nil
}

// UploadArtifact stores content for a (model, variant) pair owned by
// userID, overwriting any previous upload.
func (s *ModelService) UploadArtifact(ctx context.Context, actorID, userID, modelID string, variant storage.Variant, content io.Reader) (*model.Model, error) {
	m, err := s.GetForUserAndModel(ctx, userID, modelID)
	if err != nil {
		return nil, err
	}

	if err := s.artifacts.Write(m.ID, variant, content); err != nil {
		return nil, err
	}

	s.logger.Info("artifact uploaded",
		slog.String("model_id", m.ID),
		slog.String("variant", string(variant)),
		slog.String("actor_id", actorID),
	)
	s.metrics.IncArtifactUploaded()
	s.record(model.AuditArtifactUploaded, actorID, userID, m.ID)

	return m, nil
}

// OpenArtifact returns a reader over an artifact visible to userID.
// The caller owns the returned file.
func (s *ModelService) OpenArtifact(ctx context.Context, userID, modelID string, variant storage.Variant) (*os.File, error) {
	m, err := s.GetForUserAndModel(ctx, userID, modelID)
	if err != nil {
		return nil, err
	}

	f, err := s.artifacts.Open(m.ID, variant)
	if err != nil {
		return nil, err
	}

	s.metrics.IncArtifactDownloaded()
	return f, nil
}

// DeleteArtifact removes a single artifact. Unlike cascade reclamation,
// a missing file here is a hard error: the caller addressed one artifact
// explicitly.
func (s *ModelService) DeleteArtifact(ctx context.Context, actorID, userID, modelID string, variant storage.Variant) error {
	m, err := s.GetForUserAndModel(ctx, userID, modelID)
	if err != nil {
		return err
	}

	if err := s.artifacts.Delete(m.ID, variant); err != nil {
		return err
	}

	s.logger.Info("artifact deleted",
		slog.String("model_id", m.ID),
		slog.String("variant", string(variant)),
		slog.String("actor_id", actorID),
	)
	s.metrics.IncArtifactDeleted()
	s.record(model.AuditArtifactDeleted, actorID, userID, m.ID)

	return nil
}

// Respond assembles the wire form of a model, probing both artifact
// variants at call time. Existence is a filesystem fact, never cached.
func (s *ModelService) Respond(m *model.Model) model.ModelResponse {
	return m.ToResponse(
		s.artifacts.Exists(m.ID, storage.VariantPrimary),
		s.artifacts.Exists(m.ID, storage.VariantPlatform),
	)
}
