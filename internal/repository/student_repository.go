package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/classbridge/report-api/internal/models"
)

// StudentRepository reads the class roster.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByClass returns the roster for a class ordered by index number.
func (r *StudentRepository) ListByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error) {
	const query = `SELECT id, school_id, class_id, name, index_no
        FROM students
        WHERE school_id = $1 AND class_id = $2
        ORDER BY index_no, name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, schoolID, classID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return students, nil
}

// FindByID returns one student within a school.
func (r *StudentRepository) FindByID(ctx context.Context, schoolID string, studentID int64) (*models.Student, error) {
	const query = `SELECT id, school_id, class_id, name, index_no
        FROM students WHERE school_id = $1 AND id = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, schoolID, studentID); err != nil {
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}
