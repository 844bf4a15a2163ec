package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edusonrisas/academia-api/internal/models"
	"github.com/edusonrisas/academia-api/internal/service"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
	"github.com/edusonrisas/academia-api/pkg/response"
)

// AssignmentHandler exposes subject assignment endpoints.
type AssignmentHandler struct {
	service *service.AssignmentService
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(svc *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

type updateTaughtHoursRequest struct {
	TaughtHours int `json:"taught_hours" binding:"gte=0"`
}

// List godoc
// @Summary List subject assignments
// @Tags Enrollments
// @Produce json
// @Param teacher_id query string false "Filter by teacher"
// @Param course_id query string false "Filter by course"
// @Param subject_id query string false "Filter by subject"
// @Param year query int false "Filter by year"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	filter := models.AssignmentFilter{
		TeacherID: c.Query("teacher_id"),
		CourseID:  c.Query("course_id"),
		SubjectID: c.Query("subject_id"),
	}
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = year
	}
	if status := c.Query("status"); status != "" {
		filter.Status = models.AssignmentStatus(status)
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	assignments, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Create godoc
// @Summary Assign a teacher to a subject and course for the active year
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req service.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload"))
		return
	}
	assignment, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// UpdateTaughtHours godoc
// @Summary Update the weekly taught hours of an assignment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Assignment id"
// @Param payload body updateTaughtHoursRequest true "Hours"
// @Success 204 "No Content"
// @Router /assignments/{id}/hours [put]
func (h *AssignmentHandler) UpdateTaughtHours(c *gin.Context) {
	var req updateTaughtHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hours payload"))
		return
	}
	if err := h.service.UpdateTaughtHours(c.Request.Context(), c.Param("id"), req.TaughtHours); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Soft delete an assignment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Assignment id"
// @Success 204 "No Content"
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSubjects godoc
// @Summary List the subject catalogue
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *AssignmentHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.service.ListSubjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// ListCourses godoc
// @Summary List the course catalogue
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *AssignmentHandler) ListCourses(c *gin.Context) {
	courses, err := h.service.ListCourses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}
