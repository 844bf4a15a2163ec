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

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param enrollment_id query string false "Filter by enrollment"
// @Param assignment_id query string false "Filter by assignment"
// @Param status query string false "Filter by status"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	filter := models.AttendanceFilter{
		EnrollmentID: c.Query("enrollment_id"),
		AssignmentID: c.Query("assignment_id"),
	}
	if status := c.Query("status"); status != "" {
		s := models.AttendanceStatus(status)
		filter.Status = &s
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

	records, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Upsert godoc
// @Summary Record or correct attendance
// @Description Upserts on the enrollment, assignment and date key. Future dates and dates outside the active window are rejected.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.UpsertAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Upsert(c *gin.Context) {
	var req service.UpsertAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload"))
		return
	}
	record, err := h.service.Upsert(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Summary godoc
// @Summary Attendance summary for a student in the active window
// @Tags Attendance
// @Produce json
// @Param enrollmentId path string true "Enrollment id"
// @Success 200 {object} response.Envelope
// @Router /attendance/summary/{enrollmentId} [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("enrollmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
