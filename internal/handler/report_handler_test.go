package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/report-api/internal/middleware"
	"github.com/classbridge/report-api/internal/models"
	"github.com/classbridge/report-api/internal/service"
)

type stubRoster struct{ roster []models.Student }

func (s *stubRoster) ListByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error) {
	return s.roster, nil
}

type stubReviews struct{ upserts int }

func (s *stubReviews) ListByScope(ctx context.Context, scope models.Scope) ([]models.ReviewRecord, error) {
	return nil, nil
}

func (s *stubReviews) GetByStudent(ctx context.Context, scope models.Scope, studentID int64) (*models.ReviewRecord, error) {
	return nil, nil
}

func (s *stubReviews) Upsert(ctx context.Context, review *models.ReviewRecord) (string, error) {
	s.upserts++
	if review.ID == "" {
		review.ID = "rev-1"
	}
	return review.ID, nil
}

func (s *stubReviews) UpsertReopenDate(ctx context.Context, scope models.Scope, studentID int64, reopenDate string) (string, error) {
	return "rev-1", nil
}

type stubAggregator struct{}

func (s *stubAggregator) Aggregate(ctx context.Context, scope models.Scope, roster []models.Student, progress service.ProgressFunc) ([]models.StudentAggregate, error) {
	aggs := make([]models.StudentAggregate, len(roster))
	for i, student := range roster {
		aggs[i] = models.StudentAggregate{StudentID: student.ID, Name: student.Name, Average: 75}
	}
	return aggs, nil
}

type stubTotaler struct{}

func (s *stubTotaler) Totals(ctx context.Context, scope models.Scope, roster []models.Student) map[int64]int {
	return map[int64]int{}
}

type stubBands struct{}

func (s *stubBands) Bands(ctx context.Context, schoolID, classID string) ([]models.GradeBand, error) {
	return []models.GradeBand{{GradeLabel: "B", Remark: "Very good", MinPercent: 70, MaxPercent: 79.99}}, nil
}

func newTestReportHandler(reviews *stubReviews) *ReportHandler {
	roster := &stubRoster{roster: []models.Student{{ID: 1, Name: "Ama"}}}
	svc := service.NewReportService(roster, reviews, &stubAggregator{}, &stubTotaler{}, &stubBands{}, nil, nil, nil)
	return NewReportHandler(svc, nil)
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-t", SchoolID: "sch-1", Role: models.RoleTeacher, ClassIDs: []string{"class-1"}}
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestReportHandlerGetReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestReportHandler(&stubReviews{})

	c, w := newGinContext(http.MethodGet, "/reports/class?yearId=year-1&termId=term-1&classId=class-1", nil)
	c.Set(middleware.ContextUserKey, teacherClaims())

	handler.GetReport(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.ClassReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Rows, 1)
	require.Equal(t, "B", envelope.Data.Rows[0].Grade)
}

func TestReportHandlerGetReportMissingScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestReportHandler(&stubReviews{})

	c, w := newGinContext(http.MethodGet, "/reports/class?yearId=year-1", nil)
	c.Set(middleware.ContextUserKey, teacherClaims())

	handler.GetReport(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerSaveRowForbiddenHeadField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reviews := &stubReviews{}
	handler := newTestReportHandler(reviews)

	payload, _ := json.Marshal(service.SaveRowRequest{StudentID: 1, HeadRemarks: "Promoted"})
	c, w := newGinContext(http.MethodPut, "/reports/class/rows?yearId=year-1&termId=term-1&classId=class-1", payload)
	c.Set(middleware.ContextUserKey, teacherClaims())

	handler.SaveRow(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, 0, reviews.upserts)
}

func TestReportHandlerSaveRowReturnsReviewID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reviews := &stubReviews{}
	handler := newTestReportHandler(reviews)

	payload, _ := json.Marshal(service.SaveRowRequest{StudentID: 1, TeacherRemarks: "Improving"})
	c, w := newGinContext(http.MethodPut, "/reports/class/rows?yearId=year-1&termId=term-1&classId=class-1", payload)
	c.Set(middleware.ContextUserKey, teacherClaims())

	handler.SaveRow(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "rev-1", envelope.Data["review_id"])
}
