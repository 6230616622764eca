package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classbridge/report-api/internal/service"
	appErrors "github.com/classbridge/report-api/pkg/errors"
	"github.com/classbridge/report-api/pkg/response"
)

// ScaleHandler exposes grading scale management endpoints.
type ScaleHandler struct {
	scales *service.ScaleService
}

// NewScaleHandler constructs the handler.
func NewScaleHandler(scales *service.ScaleService) *ScaleHandler {
	return &ScaleHandler{scales: scales}
}

// List godoc
// @Summary Class grading scale
// @Tags Scales
// @Produce json
// @Security BearerAuth
// @Param classId query string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /scales [get]
func (h *ScaleHandler) List(c *gin.Context) {
	actor := actorFromContext(c)
	classID := c.Query("classId")
	if classID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classId required"))
		return
	}
	bands, err := h.scales.Bands(c.Request.Context(), actor.SchoolID, classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bands, nil)
}

// Upsert godoc
// @Summary Create or edit a grade band
// @Description Saves one band of the class grading scale. Overlapping ranges are rejected naming the conflicting band.
// @Tags Scales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.UpsertBandRequest true "Grade band payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /scales [put]
func (h *ScaleHandler) Upsert(c *gin.Context) {
	actor := actorFromContext(c)

	var req service.UpsertBandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade band payload"))
		return
	}

	band, err := h.scales.Upsert(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, band, nil)
}

// Delete godoc
// @Summary Delete a grade band
// @Tags Scales
// @Produce json
// @Security BearerAuth
// @Param id path string true "Band ID"
// @Param classId query string true "Class ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scales/{id} [delete]
func (h *ScaleHandler) Delete(c *gin.Context) {
	actor := actorFromContext(c)
	if err := h.scales.Delete(c.Request.Context(), actor, c.Query("classId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
