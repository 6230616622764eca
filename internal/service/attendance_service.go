package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/classbridge/report-api/internal/models"
)

// attendanceSource yields the raw attendance summary for a scope.
// Both the local store and the legacy gateway client satisfy it.
type attendanceSource interface {
	Summary(ctx context.Context, scope models.Scope) ([]models.AttendanceSummaryRow, error)
}

// AttendanceService condenses the upstream attendance summary into a
// per-student present-day count for one class.
type AttendanceService struct {
	source attendanceSource
	logger *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(source attendanceSource, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{source: source, logger: logger}
}

// Totals returns present-day counts keyed by student id. Rows that
// carry a class id are kept when it matches the scope's class; rows
// without one are kept only for students on the roster, since the
// upstream summary is not always class-scoped. Attendance is garnish
// on the report, so a summary failure logs and yields an empty map
// instead of failing the build.
func (s *AttendanceService) Totals(ctx context.Context, scope models.Scope, roster []models.Student) map[int64]int {
	rows, err := s.source.Summary(ctx, scope)
	if err != nil {
		s.logger.Warn("attendance summary unavailable",
			zap.String("scope", scope.Key()), zap.Error(err))
		return map[int64]int{}
	}

	onRoster := make(map[int64]bool, len(roster))
	for _, student := range roster {
		onRoster[student.ID] = true
	}

	totals := make(map[int64]int, len(rows))
	for _, row := range rows {
		if row.ClassID != nil {
			if *row.ClassID != scope.ClassID {
				continue
			}
		} else if !onRoster[row.StudentID] {
			continue
		}
		totals[row.StudentID] += row.Present
	}
	return totals
}
