package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/report-api/internal/models"
	appErrors "github.com/classbridge/report-api/pkg/errors"
)

type mockRosterReader struct {
	roster []models.Student
	block  chan struct{}
}

func (m *mockRosterReader) ListByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.roster, nil
}

type mockReviewStore struct {
	mu          sync.Mutex
	reviews     []models.ReviewRecord
	upserts     []models.ReviewRecord
	reopenSaves []string
	failStudent int64
	nextID      string
}

func (m *mockReviewStore) ListByScope(ctx context.Context, scope models.Scope) ([]models.ReviewRecord, error) {
	return m.reviews, nil
}

func (m *mockReviewStore) GetByStudent(ctx context.Context, scope models.Scope, studentID int64) (*models.ReviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, review := range m.reviews {
		if review.StudentID == studentID {
			stored := review
			return &stored, nil
		}
	}
	return nil, nil
}

func (m *mockReviewStore) Upsert(ctx context.Context, review *models.ReviewRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failStudent != 0 && review.StudentID == m.failStudent {
		return "", appErrors.Clone(appErrors.ErrUpstreamSave, "")
	}
	if review.ID == "" {
		review.ID = m.nextID
		if review.ID == "" {
			review.ID = "rev-generated"
		}
	}
	m.upserts = append(m.upserts, *review)
	return review.ID, nil
}

func (m *mockReviewStore) UpsertReopenDate(ctx context.Context, scope models.Scope, studentID int64, reopenDate string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reopenSaves = append(m.reopenSaves, reopenDate)
	return "rev-reopen", nil
}

func (m *mockReviewStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserts) + len(m.reopenSaves)
}

type mockAggregator struct {
	aggregates []models.StudentAggregate
}

func (m *mockAggregator) Aggregate(ctx context.Context, scope models.Scope, roster []models.Student, progress ProgressFunc) ([]models.StudentAggregate, error) {
	return m.aggregates, nil
}

type mockTotaler struct {
	totals map[int64]int
}

func (m *mockTotaler) Totals(ctx context.Context, scope models.Scope, roster []models.Student) map[int64]int {
	if m.totals == nil {
		return map[int64]int{}
	}
	return m.totals
}

type mockBandReader struct {
	bands []models.GradeBand
}

func (m *mockBandReader) Bands(ctx context.Context, schoolID, classID string) ([]models.GradeBand, error) {
	return m.bands, nil
}

func teacherActor() models.Actor {
	return models.Actor{UserID: "user-t", SchoolID: "sch-1", Role: models.RoleTeacher, ClassIDs: []string{"class-1"}}
}

func newTestReportService(roster *mockRosterReader, reviews *mockReviewStore, agg *mockAggregator, totals *mockTotaler, bands *mockBandReader) *ReportService {
	if roster == nil {
		roster = &mockRosterReader{}
	}
	if reviews == nil {
		reviews = &mockReviewStore{}
	}
	if agg == nil {
		agg = &mockAggregator{}
	}
	if totals == nil {
		totals = &mockTotaler{}
	}
	if bands == nil {
		bands = &mockBandReader{bands: defaultBands()}
	}
	return NewReportService(roster, reviews, agg, totals, bands, nil, nil, nil)
}

func TestReportBuildMergesAllPhases(t *testing.T) {
	roster := &mockRosterReader{roster: testRoster(3)}
	agg := &mockAggregator{aggregates: []models.StudentAggregate{
		{StudentID: 1, Name: "Ama", Average: 85.5, Subjects: 6},
		{StudentID: 2, Name: "Kojo", Average: 85.5, Subjects: 6},
		{StudentID: 3, Name: "Esi", Average: 64.25, Subjects: 6},
	}}
	reviews := &mockReviewStore{reviews: []models.ReviewRecord{
		{ID: "rev-1", StudentID: 1, TeacherRemarks: "Hard working", ReopenDate: "2026-01-12", Attendance: 52},
		{ID: "rev-3", StudentID: 3, ReopenDate: "2026-01-12"},
	}}
	totals := &mockTotaler{totals: map[int64]int{1: 50, 2: 48, 3: 47}}

	svc := newTestReportService(roster, reviews, agg, totals, nil)
	report, err := svc.Build(context.Background(), teacherActor(), testScope(), nil)
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)

	first := report.Rows[0]
	assert.Equal(t, "rev-1", first.ReviewID)
	assert.Equal(t, 1, first.OverallPosition)
	assert.Equal(t, "A", first.Grade)
	assert.Equal(t, "Excellent", first.Remark)
	assert.Equal(t, "Hard working", first.TeacherRemarks)
	// Stored attendance overrides the computed total.
	assert.Equal(t, 52, first.Attendance)

	second := report.Rows[1]
	assert.Equal(t, 1, second.OverallPosition)
	assert.Equal(t, 48, second.Attendance)

	third := report.Rows[2]
	assert.Equal(t, 3, third.OverallPosition)
	assert.Equal(t, "C", third.Grade)

	assert.Equal(t, "2026-01-12", report.ReopenDate)
	assert.Equal(t, 0, report.PartialFailures)
}

func TestReportBuildCountsPartialFailures(t *testing.T) {
	roster := &mockRosterReader{roster: testRoster(2)}
	agg := &mockAggregator{aggregates: []models.StudentAggregate{
		{StudentID: 1, Average: 70},
		{StudentID: 2, Failed: true},
	}}

	svc := newTestReportService(roster, nil, agg, nil, nil)
	report, err := svc.Build(context.Background(), teacherActor(), testScope(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.PartialFailures)
	assert.True(t, report.Rows[1].AggregateFailed)
}

func TestReportBuildRejectsIncompleteScope(t *testing.T) {
	svc := newTestReportService(nil, nil, nil, nil, nil)
	scope := testScope()
	scope.TermID = ""

	_, err := svc.Build(context.Background(), teacherActor(), scope, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportBuildRejectsUnassignedClass(t *testing.T) {
	svc := newTestReportService(nil, nil, nil, nil, nil)
	scope := testScope()
	scope.ClassID = "class-9"

	_, err := svc.Build(context.Background(), teacherActor(), scope, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportBuildSupersededByNewScope(t *testing.T) {
	block := make(chan struct{})
	roster := &mockRosterReader{roster: testRoster(1), block: block}
	agg := &mockAggregator{aggregates: []models.StudentAggregate{{StudentID: 1, Average: 70}}}
	svc := newTestReportService(roster, nil, agg, nil, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Build(context.Background(), teacherActor(), testScope(), nil)
		errCh <- err
	}()
	// Wait for the first build to park in the roster fetch, then start
	// a second build for a different class under the same owner.
	time.Sleep(20 * time.Millisecond)

	scope2 := testScope()
	scope2.ClassID = "class-2"
	actor := teacherActor()
	actor.ClassIDs = append(actor.ClassIDs, "class-2")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.Build(context.Background(), actor, scope2, nil)
		assert.NoError(t, err)
	}()
	// Wait for the second build to acquire the scope and park in the
	// roster fetch before releasing both builds.
	time.Sleep(20 * time.Millisecond)
	close(block)

	err := <-errCh
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStaleScope.Code, appErrors.FromError(err).Code)
	<-done
}

func TestSaveRowForwardsReviewID(t *testing.T) {
	reviews := &mockReviewStore{}
	svc := newTestReportService(nil, reviews, nil, nil, nil)

	id, err := svc.SaveRow(context.Background(), teacherActor(), testScope(), SaveRowRequest{
		StudentID:      1,
		TeacherRemarks: "Improving",
	})
	require.NoError(t, err)
	assert.Equal(t, "rev-generated", id)

	// Saving again with the returned id updates the same row.
	id2, err := svc.SaveRow(context.Background(), teacherActor(), testScope(), SaveRowRequest{
		StudentID:      1,
		ReviewID:       id,
		TeacherRemarks: "Improving steadily",
	})
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	require.Len(t, reviews.upserts, 2)
	assert.Equal(t, id, reviews.upserts[1].ID)
}

func TestSaveRowTeacherCannotChangeHeadFields(t *testing.T) {
	reviews := &mockReviewStore{reviews: []models.ReviewRecord{
		{ID: "rev-1", StudentID: 1, HeadRemarks: "Promoted", ReopenDate: "2026-01-12"},
	}}
	svc := newTestReportService(nil, reviews, nil, nil, nil)

	_, err := svc.SaveRow(context.Background(), teacherActor(), testScope(), SaveRowRequest{
		StudentID:   1,
		ReviewID:    "rev-1",
		HeadRemarks: "Repeated",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	// Rejected before any write.
	assert.Equal(t, 0, reviews.callCount())

	_, err = svc.SaveRow(context.Background(), teacherActor(), testScope(), SaveRowRequest{
		StudentID:  1,
		ReviewID:   "rev-1",
		ReopenDate: "2026-02-02",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, reviews.callCount())

	// A reopen-only save never needs the stored row to be rejected.
	_, err = svc.SaveRow(context.Background(), teacherActor(), testScope(), SaveRowRequest{
		StudentID:  1,
		ReopenDate: "2026-01-12",
		ReopenOnly: true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, reviews.callCount())
}

func TestSaveRowTeacherEchoesStoredHeadFields(t *testing.T) {
	reviews := &mockReviewStore{reviews: []models.ReviewRecord{
		{ID: "rev-1", StudentID: 1, HeadRemarks: "Promoted", ReopenDate: "2026-01-12"},
	}}
	svc := newTestReportService(nil, reviews, nil, nil, nil)

	// The save payload carries the row's current head fields back
	// unchanged; that must not count as a head edit.
	id, err := svc.SaveRow(context.Background(), teacherActor(), testScope(), SaveRowRequest{
		StudentID:      1,
		ReviewID:       "rev-1",
		TeacherRemarks: "Hard working",
		HeadRemarks:    "Promoted",
		ReopenDate:     "2026-01-12",
	})
	require.NoError(t, err)
	assert.Equal(t, "rev-1", id)
	require.Len(t, reviews.upserts, 1)
	assert.Equal(t, "Hard working", reviews.upserts[0].TeacherRemarks)
	assert.Equal(t, "Promoted", reviews.upserts[0].HeadRemarks)
	assert.Equal(t, "2026-01-12", reviews.upserts[0].ReopenDate)
}

func TestSaveRowTeacherBlankHeadFieldsPreserved(t *testing.T) {
	reviews := &mockReviewStore{reviews: []models.ReviewRecord{
		{ID: "rev-1", StudentID: 1, HeadRemarks: "Promoted", ReopenDate: "2026-01-12"},
	}}
	svc := newTestReportService(nil, reviews, nil, nil, nil)

	// A payload without the head fields must not erase them.
	_, err := svc.SaveRow(context.Background(), teacherActor(), testScope(), SaveRowRequest{
		StudentID:      1,
		ReviewID:       "rev-1",
		TeacherRemarks: "Improving",
	})
	require.NoError(t, err)
	require.Len(t, reviews.upserts, 1)
	assert.Equal(t, "Promoted", reviews.upserts[0].HeadRemarks)
	assert.Equal(t, "2026-01-12", reviews.upserts[0].ReopenDate)
}

func TestSaveRowHeadTeacherReopenOnly(t *testing.T) {
	reviews := &mockReviewStore{}
	svc := newTestReportService(nil, reviews, nil, nil, nil)

	actor := models.Actor{UserID: "user-h", SchoolID: "sch-1", Role: models.RoleHeadTeacher}
	id, err := svc.SaveRow(context.Background(), actor, testScope(), SaveRowRequest{
		StudentID:  1,
		ReopenDate: "2026-01-12",
		ReopenOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "rev-reopen", id)
	require.Len(t, reviews.reopenSaves, 1)
	assert.Equal(t, "2026-01-12", reviews.reopenSaves[0])
	assert.Empty(t, reviews.upserts)
}

func TestSaveAllStopsAtFirstError(t *testing.T) {
	reviews := &mockReviewStore{failStudent: 2}
	svc := newTestReportService(nil, reviews, nil, nil, nil)

	result, err := svc.SaveAll(context.Background(), teacherActor(), testScope(), []SaveRowRequest{
		{StudentID: 1, TeacherRemarks: "a"},
		{StudentID: 2, TeacherRemarks: "b"},
		{StudentID: 3, TeacherRemarks: "c"},
	})
	require.Error(t, err)
	assert.Equal(t, 1, result.Saved)
	assert.Equal(t, int64(2), result.FailedStudent)
	// Student 3 was never attempted.
	require.Len(t, reviews.upserts, 1)
}

func TestSaveAllRejectsConcurrentRun(t *testing.T) {
	reviews := &mockReviewStore{}
	svc := newTestReportService(nil, reviews, nil, nil, nil)

	key := testScope().Key()
	svc.saveMu.Lock()
	svc.savesInFly[key] = true
	svc.saveMu.Unlock()

	_, err := svc.SaveAll(context.Background(), teacherActor(), testScope(), []SaveRowRequest{
		{StudentID: 1, TeacherRemarks: "a"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSaveInProgress.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, reviews.callCount())
}

func TestMajorityReopenDate(t *testing.T) {
	reviews := []models.ReviewRecord{
		{ReopenDate: "2026-01-12"},
		{ReopenDate: "2026-01-12"},
		{ReopenDate: "2026-01-05"},
		{ReopenDate: ""},
	}
	assert.Equal(t, "2026-01-12", majorityReopenDate(reviews))

	// A tie resolves to the later date.
	tied := []models.ReviewRecord{
		{ReopenDate: "2026-01-05"},
		{ReopenDate: "2026-01-12"},
	}
	assert.Equal(t, "2026-01-12", majorityReopenDate(tied))

	assert.Equal(t, "", majorityReopenDate(nil))
}
