package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classbridge/report-api/internal/service"
	appErrors "github.com/classbridge/report-api/pkg/errors"
	"github.com/classbridge/report-api/pkg/response"
)

// ReportHandler exposes the class report endpoints: the assembled
// report and the per-row and bulk review saves.
type ReportHandler struct {
	reports *service.ReportService
	metrics *service.MetricsService
}

// NewReportHandler constructs the handler.
func NewReportHandler(reports *service.ReportService, metrics *service.MetricsService) *ReportHandler {
	return &ReportHandler{reports: reports, metrics: metrics}
}

// GetReport godoc
// @Summary Assembled class report
// @Description Builds the class report for a year, term and class: averages, positions, grades, attendance and stored reviews.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param yearId query string true "Academic year ID"
// @Param termId query string true "Term ID"
// @Param classId query string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/class [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	actor := actorFromContext(c)
	scope := scopeFromQuery(c, actor.SchoolID)

	start := time.Now()
	report, err := h.reports.Build(c.Request.Context(), actor, scope, nil)
	if err != nil {
		h.observeBuild(err, start)
		response.Error(c, err)
		return
	}
	h.observeBuild(nil, start)
	if h.metrics != nil {
		h.metrics.ObservePartialFailures(report.PartialFailures)
	}
	response.JSON(c, http.StatusOK, report, nil)
}

func (h *ReportHandler) observeBuild(err error, start time.Time) {
	if h.metrics == nil {
		return
	}
	outcome := service.BuildOutcomeOK
	if err != nil {
		outcome = service.BuildOutcomeError
		if appErrors.FromError(err).Code == appErrors.ErrStaleScope.Code {
			outcome = service.BuildOutcomeStale
		}
	}
	h.metrics.ObserveReportBuild(outcome, time.Since(start))
}

// SaveRow godoc
// @Summary Save one review row
// @Description Persists one student's remarks, attendance and reopening date. Returns the review id to carry on the next save.
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param yearId query string true "Academic year ID"
// @Param termId query string true "Term ID"
// @Param classId query string true "Class ID"
// @Param payload body service.SaveRowRequest true "Review row payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reports/class/rows [put]
func (h *ReportHandler) SaveRow(c *gin.Context) {
	actor := actorFromContext(c)
	scope := scopeFromQuery(c, actor.SchoolID)

	var req service.SaveRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	id, err := h.reports.SaveRow(c.Request.Context(), actor, scope, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"review_id": id}, nil)
}

// SaveAll godoc
// @Summary Save all review rows
// @Description Persists a batch of review rows sequentially, stopping at the first failure.
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param yearId query string true "Academic year ID"
// @Param termId query string true "Term ID"
// @Param classId query string true "Class ID"
// @Param payload body []service.SaveRowRequest true "Review rows payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/class/rows/all [put]
func (h *ReportHandler) SaveAll(c *gin.Context) {
	actor := actorFromContext(c)
	scope := scopeFromQuery(c, actor.SchoolID)

	var reqs []service.SaveRowRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review batch payload"))
		return
	}

	result, err := h.reports.SaveAll(c.Request.Context(), actor, scope, reqs)
	if err != nil {
		// Partial progress still matters to the caller.
		if result != nil {
			appErr := appErrors.FromError(err)
			c.JSON(appErr.Status, response.Envelope{Data: result, Error: appErr})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
