package model

import "time"

// Audit actions recorded by the lifecycle service. Explicit deletion and
// cascading reclamation are distinct actions on purpose: operators need
// to tell an administrator's decision apart from an automatic cleanup.
const (
	AuditModelCreated       = "model.created"
	AuditModelShared        = "model.shared"
	AuditModelUnshared      = "model.unshared"
	AuditModelDeleted       = "model.deleted"
	AuditModelCascadeDelete = "model.cascade_deleted"
	AuditArtifactUploaded   = "artifact.uploaded"
	AuditArtifactDeleted    = "artifact.deleted"
)

// AuditEvent is one recorded lifecycle action. IDs are ULIDs, so ordering
// by ID is ordering by time.
type AuditEvent struct {
	ID            string    `json:"id"`
	Action        string    `json:"action"`
	ActorID       string    `json:"actor_id"`
	SubjectUserID string    `json:"subject_user_id,omitempty"`
	ModelID       string    `json:"model_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
