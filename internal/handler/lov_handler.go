package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classbridge/report-api/internal/service"
	"github.com/classbridge/report-api/pkg/response"
)

// LovHandler serves the selector lists behind the scoring screens.
type LovHandler struct {
	lov *service.LovService
}

// NewLovHandler constructs the handler.
func NewLovHandler(lov *service.LovService) *LovHandler {
	return &LovHandler{lov: lov}
}

// Classes godoc
// @Summary Selectable classes
// @Description All classes for head teachers and admins, assigned classes for teachers.
// @Tags Lookups
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /lov/classes [get]
func (h *LovHandler) Classes(c *gin.Context) {
	classes, err := h.lov.Classes(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// Years godoc
// @Summary Academic years
// @Tags Lookups
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /lov/years [get]
func (h *LovHandler) Years(c *gin.Context) {
	years, err := h.lov.Years(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// Terms godoc
// @Summary Terms for an academic year
// @Tags Lookups
// @Produce json
// @Security BearerAuth
// @Param yearId query string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /lov/terms [get]
func (h *LovHandler) Terms(c *gin.Context) {
	terms, err := h.lov.Terms(c.Request.Context(), actorFromContext(c), c.Query("yearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, terms, nil)
}

// Subjects godoc
// @Summary Subjects taught in a class
// @Tags Lookups
// @Produce json
// @Security BearerAuth
// @Param classId query string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /lov/subjects [get]
func (h *LovHandler) Subjects(c *gin.Context) {
	subjects, err := h.lov.Subjects(c.Request.Context(), actorFromContext(c), c.Query("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}
