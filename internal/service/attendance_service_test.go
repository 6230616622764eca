package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/report-api/internal/models"
)

type mockAttendanceSource struct {
	rows []models.AttendanceSummaryRow
	err  error
}

func (m *mockAttendanceSource) Summary(ctx context.Context, scope models.Scope) ([]models.AttendanceSummaryRow, error) {
	return m.rows, m.err
}

func strPtr(s string) *string { return &s }

func TestAttendanceTotalsFiltersByClassID(t *testing.T) {
	source := &mockAttendanceSource{rows: []models.AttendanceSummaryRow{
		{StudentID: 1, ClassID: strPtr("class-1"), Present: 54},
		{StudentID: 2, ClassID: strPtr("class-2"), Present: 40},
		{StudentID: 3, ClassID: strPtr("class-1"), Present: 50},
	}}
	svc := NewAttendanceService(source, nil)

	totals := svc.Totals(context.Background(), testScope(), testRoster(3))
	require.Len(t, totals, 2)
	assert.Equal(t, 54, totals[1])
	assert.Equal(t, 50, totals[3])
	_, ok := totals[2]
	assert.False(t, ok)
}

func TestAttendanceTotalsFallsBackToRoster(t *testing.T) {
	// No class id on the rows: only roster students count.
	source := &mockAttendanceSource{rows: []models.AttendanceSummaryRow{
		{StudentID: 1, Present: 54},
		{StudentID: 99, Present: 12},
	}}
	svc := NewAttendanceService(source, nil)

	totals := svc.Totals(context.Background(), testScope(), testRoster(2))
	require.Len(t, totals, 1)
	assert.Equal(t, 54, totals[1])
}

func TestAttendanceTotalsSummaryFailureYieldsEmpty(t *testing.T) {
	source := &mockAttendanceSource{err: errors.New("upstream down")}
	svc := NewAttendanceService(source, nil)

	totals := svc.Totals(context.Background(), testScope(), testRoster(2))
	assert.NotNil(t, totals)
	assert.Empty(t, totals)
}
