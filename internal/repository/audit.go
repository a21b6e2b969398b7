package repository

import (
	"context"
	"fmt"

	"github.com/modelvault/modelvault/internal/model"
)

// BulkInsertAuditEvents writes a batch of audit events in one round trip.
// Duplicate event IDs are skipped so a redelivered batch is harmless.
func (r *Repository) BulkInsertAuditEvents(ctx context.Context, events []*model.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	query := `
		INSERT INTO audit_events (id, action, actor_id, subject_user_id, model_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin audit batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		if _, err := tx.Exec(ctx, query,
			e.ID,
			e.Action,
			e.ActorID,
			e.SubjectUserID,
			e.ModelID,
			e.OccurredAt,
		); err != nil {
			return fmt.Errorf("failed to insert audit event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit audit batch: %w", err)
	}
	return nil
}

// ListAuditEventsForModel returns the audit trail for a model, newest first.
func (r *Repository) ListAuditEventsForModel(ctx context.Context, modelID string, limit int) ([]*model.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, action, actor_id, subject_user_id, model_id, occurred_at
		FROM audit_events
		WHERE model_id = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, modelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	events := make([]*model.AuditEvent, 0)
	for rows.Next() {
		var e model.AuditEvent
		if err := rows.Scan(&e.ID, &e.Action, &e.ActorID, &e.SubjectUserID, &e.ModelID, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit events: %w", err)
	}

	return events, nil
}
