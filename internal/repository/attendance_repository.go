package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/classbridge/report-api/internal/models"
)

// AttendanceRepository reads present-day summaries from the local
// attendance tables. It serves the same narrow contract as the ORDS
// gateway client, so the report pipeline does not care which one is
// wired in.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Summary returns one row per student with the count of days marked
// present within the scope.
func (r *AttendanceRepository) Summary(ctx context.Context, scope models.Scope) ([]models.AttendanceSummaryRow, error) {
	const query = `SELECT student_id, class_id, COUNT(*) AS present
        FROM attendance_days
        WHERE school_id = $1 AND year_id = $2 AND term_id = $3 AND class_id = $4 AND status = 'PRESENT'
        GROUP BY student_id, class_id`
	var rows []models.AttendanceSummaryRow
	if err := r.db.SelectContext(ctx, &rows, query, scope.SchoolID, scope.YearID, scope.TermID, scope.ClassID); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	return rows, nil
}
