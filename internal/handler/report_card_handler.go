package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edusonrisas/academia-api/internal/models"
	"github.com/edusonrisas/academia-api/internal/service"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
	"github.com/edusonrisas/academia-api/pkg/response"
)

// ReportCardHandler exposes report card endpoints, including PDF and
// zip downloads.
type ReportCardHandler struct {
	service *service.ReportCardService
}

// NewReportCardHandler constructs a report card handler.
func NewReportCardHandler(svc *service.ReportCardService) *ReportCardHandler {
	return &ReportCardHandler{service: svc}
}

type updateCommentsRequest struct {
	Comments *string `json:"comments"`
}

// List godoc
// @Summary List report cards
// @Tags Report Cards
// @Produce json
// @Param course_id query string false "Filter by course"
// @Param period_id query string false "Filter by period"
// @Param enrollment_id query string false "Filter by enrollment"
// @Param year query int false "Filter by year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /report-cards [get]
func (h *ReportCardHandler) List(c *gin.Context) {
	filter := models.ReportCardFilter{
		CourseID:     c.Query("course_id"),
		PeriodID:     c.Query("period_id"),
		EnrollmentID: c.Query("enrollment_id"),
	}
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = year
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	cards, total, err := h.service.List(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cards, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// View godoc
// @Summary View a report card
// @Description Recomputes the grade document from current entries before returning it
// @Tags Report Cards
// @Produce json
// @Param id path string true "Report card id"
// @Success 200 {object} response.Envelope
// @Router /report-cards/{id} [get]
func (h *ReportCardHandler) View(c *gin.Context) {
	card, err := h.service.View(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}

// BulkGenerate godoc
// @Summary Generate report cards for every active student of a course
// @Description Creates missing rows for the active period and materializes all of them. Existing rows are kept.
// @Tags Report Cards
// @Produce json
// @Param courseId path string true "Course id"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /report-cards/courses/{courseId}/generate [post]
func (h *ReportCardHandler) BulkGenerate(c *gin.Context) {
	result, err := h.service.BulkGenerate(c.Request.Context(), c.Param("courseId"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// DownloadPDF godoc
// @Summary Download a report card as PDF
// @Tags Report Cards
// @Produce application/pdf
// @Param id path string true "Report card id"
// @Success 200 {file} binary
// @Router /report-cards/{id}/pdf [get]
func (h *ReportCardHandler) DownloadPDF(c *gin.Context) {
	payload, filename, err := h.service.DownloadPDF(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}

// DownloadCourseArchive godoc
// @Summary Download every report card of a course and period as a zip of PDFs
// @Tags Report Cards
// @Produce application/zip
// @Param courseId path string true "Course id"
// @Param periodId query string true "Period id"
// @Success 200 {file} binary
// @Router /report-cards/courses/{courseId}/archive [get]
func (h *ReportCardHandler) DownloadCourseArchive(c *gin.Context) {
	periodID := c.Query("periodId")
	if periodID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "periodId query parameter is required"))
		return
	}
	payload, filename, err := h.service.DownloadCourseArchive(c.Request.Context(), c.Param("courseId"), periodID, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/zip", payload)
}

// CourseStanding godoc
// @Summary Rank the students of a course by period average
// @Tags Report Cards
// @Produce json
// @Param courseId path string true "Course id"
// @Param periodId query string true "Period id"
// @Success 200 {object} response.Envelope
// @Router /report-cards/courses/{courseId}/standing [get]
func (h *ReportCardHandler) CourseStanding(c *gin.Context) {
	periodID := c.Query("periodId")
	if periodID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "periodId query parameter is required"))
		return
	}
	rows, err := h.service.CourseStanding(c.Request.Context(), c.Param("courseId"), periodID, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// UpdateComments godoc
// @Summary Update the free-form comments of a report card
// @Tags Report Cards
// @Accept json
// @Produce json
// @Param id path string true "Report card id"
// @Param payload body updateCommentsRequest true "Comments"
// @Success 204 "No Content"
// @Router /report-cards/{id}/comments [put]
func (h *ReportCardHandler) UpdateComments(c *gin.Context) {
	var req updateCommentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comments payload"))
		return
	}
	if err := h.service.UpdateComments(c.Request.Context(), c.Param("id"), req.Comments); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Soft delete a report card
// @Tags Report Cards
// @Produce json
// @Param id path string true "Report card id"
// @Success 204 "No Content"
// @Router /report-cards/{id} [delete]
func (h *ReportCardHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
