package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/classbridge/report-api/internal/models"
)

// LovRepository serves the list-of-values lookups that drive the
// scoring screens: classes, academic years, and terms.
type LovRepository struct {
	db *sqlx.DB
}

// NewLovRepository creates a new LOV repository.
func NewLovRepository(db *sqlx.DB) *LovRepository {
	return &LovRepository{db: db}
}

// ListClasses returns every class in the school, ordered by name.
func (r *LovRepository) ListClasses(ctx context.Context, schoolID string) ([]models.SchoolClass, error) {
	const query = `SELECT id, school_id, name
        FROM classes WHERE school_id = $1 ORDER BY name`
	var classes []models.SchoolClass
	if err := r.db.SelectContext(ctx, &classes, query, schoolID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// ListAssignedClasses returns only the classes assigned to one teacher.
func (r *LovRepository) ListAssignedClasses(ctx context.Context, schoolID string, userID string) ([]models.SchoolClass, error) {
	const query = `SELECT c.id, c.school_id, c.name
        FROM classes c
        JOIN class_teachers ct ON ct.class_id = c.id
        WHERE c.school_id = $1 AND ct.user_id = $2
        ORDER BY c.name`
	var classes []models.SchoolClass
	if err := r.db.SelectContext(ctx, &classes, query, schoolID, userID); err != nil {
		return nil, fmt.Errorf("list assigned classes: %w", err)
	}
	return classes, nil
}

// ListYears returns the school's academic years, newest first.
func (r *LovRepository) ListYears(ctx context.Context, schoolID string) ([]models.AcademicYear, error) {
	const query = `SELECT id, school_id, label, status
        FROM academic_years WHERE school_id = $1 ORDER BY label DESC`
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query, schoolID); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// ListTerms returns the terms belonging to an academic year.
func (r *LovRepository) ListTerms(ctx context.Context, schoolID, yearID string) ([]models.Term, error) {
	const query = `SELECT id, school_id, year_id, label, status
        FROM terms WHERE school_id = $1 AND year_id = $2 ORDER BY label`
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, schoolID, yearID); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// ListSubjects returns the subjects taught in a class.
func (r *LovRepository) ListSubjects(ctx context.Context, schoolID, classID string) ([]models.Subject, error) {
	const query = `SELECT id, school_id, class_id, name
        FROM subjects WHERE school_id = $1 AND class_id = $2 ORDER BY name`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, schoolID, classID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}
