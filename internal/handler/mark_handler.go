package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classbridge/report-api/internal/service"
	appErrors "github.com/classbridge/report-api/pkg/errors"
	"github.com/classbridge/report-api/pkg/response"
)

// MarkHandler exposes the per-subject score entry endpoints.
type MarkHandler struct {
	marks *service.MarkService
}

// NewMarkHandler constructs the handler.
func NewMarkHandler(marks *service.MarkService) *MarkHandler {
	return &MarkHandler{marks: marks}
}

// Sheet godoc
// @Summary Score entry sheet
// @Description Roster merged with stored marks for one subject.
// @Tags Marks
// @Produce json
// @Security BearerAuth
// @Param yearId query string true "Academic year ID"
// @Param termId query string true "Term ID"
// @Param classId query string true "Class ID"
// @Param subjectId query string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /marks/sheet [get]
func (h *MarkHandler) Sheet(c *gin.Context) {
	actor := actorFromContext(c)
	scope := scopeFromQuery(c, actor.SchoolID)

	rows, err := h.marks.Sheet(c.Request.Context(), actor, scope, c.Query("subjectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Save godoc
// @Summary Save one mark
// @Description Persists class and exam scores; the total, grade and subject positions are derived server-side.
// @Tags Marks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param yearId query string true "Academic year ID"
// @Param termId query string true "Term ID"
// @Param classId query string true "Class ID"
// @Param payload body service.UpsertMarkRequest true "Mark payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /marks [put]
func (h *MarkHandler) Save(c *gin.Context) {
	actor := actorFromContext(c)
	scope := scopeFromQuery(c, actor.SchoolID)

	var req service.UpsertMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mark payload"))
		return
	}

	mark, err := h.marks.Save(c.Request.Context(), actor, scope, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// Delete godoc
// @Summary Delete one mark
// @Tags Marks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Mark ID"
// @Param yearId query string true "Academic year ID"
// @Param termId query string true "Term ID"
// @Param classId query string true "Class ID"
// @Param subjectId query string true "Subject ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /marks/{id} [delete]
func (h *MarkHandler) Delete(c *gin.Context) {
	actor := actorFromContext(c)
	scope := scopeFromQuery(c, actor.SchoolID)

	if err := h.marks.Delete(c.Request.Context(), actor, scope, c.Query("subjectId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
