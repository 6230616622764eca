package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classbridge/report-api/internal/models"
)

// ReviewRepository persists the per-student report-card review rows.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new review repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// ListByScope returns the stored review rows for a scope.
func (r *ReviewRepository) ListByScope(ctx context.Context, scope models.Scope) ([]models.ReviewRecord, error) {
	const query = `SELECT id, school_id, year_id, term_id, class_id, student_id,
        teacher_remarks, head_remarks, attendance, reopen_date, overall_score, overall_position,
        created_at, updated_at
        FROM report_reviews
        WHERE school_id = $1 AND year_id = $2 AND term_id = $3 AND class_id = $4
        ORDER BY student_id`
	var reviews []models.ReviewRecord
	if err := r.db.SelectContext(ctx, &reviews, query, scope.SchoolID, scope.YearID, scope.TermID, scope.ClassID); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// GetByStudent returns one student's stored review row, or nil when
// the row has never been saved.
func (r *ReviewRepository) GetByStudent(ctx context.Context, scope models.Scope, studentID int64) (*models.ReviewRecord, error) {
	const query = `SELECT id, school_id, year_id, term_id, class_id, student_id,
        teacher_remarks, head_remarks, attendance, reopen_date, overall_score, overall_position,
        created_at, updated_at
        FROM report_reviews
        WHERE school_id = $1 AND year_id = $2 AND term_id = $3 AND class_id = $4 AND student_id = $5`
	var review models.ReviewRecord
	if err := r.db.GetContext(ctx, &review, query, scope.SchoolID, scope.YearID, scope.TermID, scope.ClassID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return &review, nil
}

// Upsert inserts or updates a review row and returns its id. The
// natural key is (school, year, term, class, student); the first save
// generates the id, later saves carry it back in.
func (r *ReviewRepository) Upsert(ctx context.Context, review *models.ReviewRecord) (string, error) {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now
	const query = `INSERT INTO report_reviews (id, school_id, year_id, term_id, class_id, student_id,
        teacher_remarks, head_remarks, attendance, reopen_date, overall_score, overall_position, created_at, updated_at)
        VALUES (:id, :school_id, :year_id, :term_id, :class_id, :student_id,
        :teacher_remarks, :head_remarks, :attendance, :reopen_date, :overall_score, :overall_position, :created_at, :updated_at)
        ON CONFLICT (school_id, year_id, term_id, class_id, student_id)
        DO UPDATE SET teacher_remarks = EXCLUDED.teacher_remarks, head_remarks = EXCLUDED.head_remarks,
        attendance = EXCLUDED.attendance, reopen_date = EXCLUDED.reopen_date,
        overall_score = EXCLUDED.overall_score, overall_position = EXCLUDED.overall_position,
        updated_at = EXCLUDED.updated_at
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, review)
	if err != nil {
		return "", fmt.Errorf("upsert review: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&review.ID); err != nil {
			return "", fmt.Errorf("scan review id: %w", err)
		}
	}
	return review.ID, nil
}

// UpsertReopenDate overwrites only the reopening date for one
// student's row, leaving the remark and score fields as last saved.
func (r *ReviewRepository) UpsertReopenDate(ctx context.Context, scope models.Scope, studentID int64, reopenDate string) (string, error) {
	now := time.Now().UTC()
	const query = `INSERT INTO report_reviews (id, school_id, year_id, term_id, class_id, student_id,
        teacher_remarks, head_remarks, attendance, reopen_date, overall_score, overall_position, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, '', '', 0, $7, 0, 0, $8, $8)
        ON CONFLICT (school_id, year_id, term_id, class_id, student_id)
        DO UPDATE SET reopen_date = EXCLUDED.reopen_date, updated_at = EXCLUDED.updated_at
        RETURNING id`
	var id string
	if err := r.db.GetContext(ctx, &id, query, uuid.NewString(), scope.SchoolID, scope.YearID, scope.TermID, scope.ClassID, studentID, reopenDate, now); err != nil {
		return "", fmt.Errorf("upsert reopen date: %w", err)
	}
	return id, nil
}
