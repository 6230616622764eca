package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classbridge/report-api/internal/models"
)

// ScaleRepository persists grading scale bands.
type ScaleRepository struct {
	db *sqlx.DB
}

// NewScaleRepository creates a new scale repository.
func NewScaleRepository(db *sqlx.DB) *ScaleRepository {
	return &ScaleRepository{db: db}
}

// ListByClass returns a class's bands sorted descending by min_percent,
// the order the resolver expects.
func (r *ScaleRepository) ListByClass(ctx context.Context, schoolID, classID string) ([]models.GradeBand, error) {
	const query = `SELECT id, school_id, class_id, min_percent, max_percent, grade_label, remark, created_at, updated_at
        FROM grade_bands
        WHERE school_id = $1 AND class_id = $2
        ORDER BY min_percent DESC`
	var bands []models.GradeBand
	if err := r.db.SelectContext(ctx, &bands, query, schoolID, classID); err != nil {
		return nil, fmt.Errorf("list grade bands: %w", err)
	}
	return bands, nil
}

// Upsert inserts or updates a band and returns its id.
func (r *ScaleRepository) Upsert(ctx context.Context, band *models.GradeBand) (string, error) {
	if band.ID == "" {
		band.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if band.CreatedAt.IsZero() {
		band.CreatedAt = now
	}
	band.UpdatedAt = now
	const query = `INSERT INTO grade_bands (id, school_id, class_id, min_percent, max_percent, grade_label, remark, created_at, updated_at)
        VALUES (:id, :school_id, :class_id, :min_percent, :max_percent, :grade_label, :remark, :created_at, :updated_at)
        ON CONFLICT (id)
        DO UPDATE SET min_percent = EXCLUDED.min_percent, max_percent = EXCLUDED.max_percent,
        grade_label = EXCLUDED.grade_label, remark = EXCLUDED.remark, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, band); err != nil {
		return "", fmt.Errorf("upsert grade band: %w", err)
	}
	return band.ID, nil
}

// Delete removes a band scoped to a school and class.
func (r *ScaleRepository) Delete(ctx context.Context, id, schoolID, classID string) error {
	const query = `DELETE FROM grade_bands WHERE id = $1 AND school_id = $2 AND class_id = $3`
	result, err := r.db.ExecContext(ctx, query, id, schoolID, classID)
	if err != nil {
		return fmt.Errorf("delete grade band: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete grade band result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("grade band %s not found", id)
	}
	return nil
}
