package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/modelvault/modelvault/internal/model"
)

// Common errors for model repository operations.
var (
	ErrModelNotFound = errors.New("model not found")
)

const modelColumns = "id, name, owner_ids, created_at, updated_at"

// CreateModel inserts a new model with its initial owner set.
func (r *Repository) CreateModel(ctx context.Context, m *model.Model) error {
	query := `
		INSERT INTO models (id, name, owner_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		m.ID,
		m.Name,
		pq.Array(m.OwnerIDs),
		m.CreatedAt,
		m.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}

	return nil
}

// GetModelByID retrieves a model by its ID.
func (r *Repository) GetModelByID(ctx context.Context, id string) (*model.Model, error) {
	query := `SELECT ` + modelColumns + ` FROM models WHERE id = $1`
	return r.scanModel(r.pool.QueryRow(ctx, query, id))
}

// ListModelsByOwner returns all models whose owner set contains userID.
// Each returned model carries its complete owner set, not just the
// requesting user.
func (r *Repository) ListModelsByOwner(ctx context.Context, userID string) ([]*model.Model, error) {
	query := `SELECT ` + modelColumns + ` FROM models WHERE $1 = ANY(owner_ids) ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	models := make([]*model.Model, 0)
	for rows.Next() {
		var m model.Model
		var owners []string
		if err := rows.Scan(&m.ID, &m.Name, pq.Array(&owners), &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		m.OwnerIDs = owners
		models = append(models, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate models: %w", err)
	}

	return models, nil
}

// ReplaceModelOwners replaces the owner set wholesale in a single atomic
// update. There is no read-modify-write at this layer: callers always
// supply the complete new owner array.
func (r *Repository) ReplaceModelOwners(ctx context.Context, modelID string, ownerIDs []string) (*model.Model, error) {
	query := `
		UPDATE models
		SET owner_ids = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + modelColumns

	return r.scanModel(r.pool.QueryRow(ctx, query, modelID, pq.Array(ownerIDs)))
}

// RenameModel updates the model's name.
func (r *Repository) RenameModel(ctx context.Context, modelID, name string) (*model.Model, error) {
	query := `
		UPDATE models
		SET name = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + modelColumns

	return r.scanModel(r.pool.QueryRow(ctx, query, modelID, name))
}

// DeleteModel removes the model record. Returns ErrModelNotFound if no
// row was deleted.
func (r *Repository) DeleteModel(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM models WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrModelNotFound
	}
	return nil
}

func (r *Repository) scanModel(row pgx.Row) (*model.Model, error) {
	var m model.Model
	var owners []string
	err := row.Scan(&m.ID, &m.Name, pq.Array(&owners), &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	m.OwnerIDs = owners
	return &m, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	// PostgreSQL error code 23505 is unique_violation
	return err != nil && (strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "unique"))
}
