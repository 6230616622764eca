package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classbridge/report-api/internal/models"
)

// MarkRepository persists per-subject mark records.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository creates a new mark repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// ListByStudent returns every mark record for one student within the
// scope, across all subjects. This feeds the aggregate report.
func (r *MarkRepository) ListByStudent(ctx context.Context, scope models.Scope, studentID int64) ([]models.MarkRecord, error) {
	const query = `SELECT id, school_id, year_id, term_id, class_id, subject_id, student_id,
        class_score, exam_score, total, grade, position, created_at, updated_at
        FROM marks
        WHERE school_id = $1 AND year_id = $2 AND term_id = $3 AND class_id = $4 AND student_id = $5
        ORDER BY subject_id`
	var marks []models.MarkRecord
	if err := r.db.SelectContext(ctx, &marks, query, scope.SchoolID, scope.YearID, scope.TermID, scope.ClassID, studentID); err != nil {
		return nil, fmt.Errorf("list student marks: %w", err)
	}
	return marks, nil
}

// ListBySubject returns the class's mark records for one subject,
// used by the score-entry sheet.
func (r *MarkRepository) ListBySubject(ctx context.Context, scope models.Scope, subjectID string) ([]models.MarkRecord, error) {
	const query = `SELECT id, school_id, year_id, term_id, class_id, subject_id, student_id,
        class_score, exam_score, total, grade, position, created_at, updated_at
        FROM marks
        WHERE school_id = $1 AND year_id = $2 AND term_id = $3 AND class_id = $4 AND subject_id = $5
        ORDER BY student_id`
	var marks []models.MarkRecord
	if err := r.db.SelectContext(ctx, &marks, query, scope.SchoolID, scope.YearID, scope.TermID, scope.ClassID, subjectID); err != nil {
		return nil, fmt.Errorf("list subject marks: %w", err)
	}
	return marks, nil
}

// Upsert inserts or updates a mark record and returns its id. A blank
// incoming id means the row has never been saved; the generated id is
// handed back so callers can reuse it on subsequent saves.
func (r *MarkRepository) Upsert(ctx context.Context, mark *models.MarkRecord) (string, error) {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mark.CreatedAt.IsZero() {
		mark.CreatedAt = now
	}
	mark.UpdatedAt = now
	const query = `INSERT INTO marks (id, school_id, year_id, term_id, class_id, subject_id, student_id,
        class_score, exam_score, total, grade, position, created_at, updated_at)
        VALUES (:id, :school_id, :year_id, :term_id, :class_id, :subject_id, :student_id,
        :class_score, :exam_score, :total, :grade, :position, :created_at, :updated_at)
        ON CONFLICT (school_id, year_id, term_id, class_id, subject_id, student_id)
        DO UPDATE SET class_score = EXCLUDED.class_score, exam_score = EXCLUDED.exam_score,
        total = EXCLUDED.total, grade = EXCLUDED.grade, position = EXCLUDED.position,
        updated_at = EXCLUDED.updated_at
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, mark)
	if err != nil {
		return "", fmt.Errorf("upsert mark: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&mark.ID); err != nil {
			return "", fmt.Errorf("scan mark id: %w", err)
		}
	}
	return mark.ID, nil
}

// Delete removes a mark record scoped to a school.
func (r *MarkRepository) Delete(ctx context.Context, id, schoolID string) error {
	const query = `DELETE FROM marks WHERE id = $1 AND school_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, schoolID)
	if err != nil {
		return fmt.Errorf("delete mark: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete mark result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark %s not found", id)
	}
	return nil
}
