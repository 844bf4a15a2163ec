package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edusonrisas/academia-api/internal/models"
	"github.com/edusonrisas/academia-api/internal/service"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
	"github.com/edusonrisas/academia-api/pkg/response"
)

// GradeHandler exposes grade entry endpoints.
type GradeHandler struct {
	service *service.GradeEntryService
}

// NewGradeHandler constructs a grade handler.
func NewGradeHandler(svc *service.GradeEntryService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// List godoc
// @Summary List grade entries
// @Tags Grades
// @Produce json
// @Param enrollment_id query string false "Filter by enrollment"
// @Param assignment_id query string false "Filter by assignment"
// @Param period_id query string false "Filter by period"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	filter := models.GradeEntryFilter{
		EnrollmentID: c.Query("enrollment_id"),
		AssignmentID: c.Query("assignment_id"),
		PeriodID:     c.Query("period_id"),
	}
	if from := c.Query("from"); from != "" {
		if d, err := time.ParseInLocation("2006-01-02", from, time.UTC); err == nil {
			filter.DateFrom = &d
		}
	}
	if to := c.Query("to"); to != "" {
		if d, err := time.ParseInLocation("2006-01-02", to, time.UTC); err == nil {
			filter.DateTo = &d
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	entries, total, err := h.service.List(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Upsert godoc
// @Summary Record or update a grade entry
// @Description Upserts on the enrollment, assignment and date key. The date must fall inside the active period window.
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.UpsertGradeEntryRequest true "Grade entry payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Upsert(c *gin.Context) {
	var req service.UpsertGradeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade entry payload"))
		return
	}
	entry, err := h.service.Upsert(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete a grade entry
// @Tags Grades
// @Param id path string true "Grade entry id"
// @Success 204 {object} nil
// @Router /grades/{id} [delete]
func (h *GradeHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
