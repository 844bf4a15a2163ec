package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edusonrisas/academia-api/internal/service"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
	"github.com/edusonrisas/academia-api/pkg/response"
)

// CalendarHandler exposes school year and period endpoints.
type CalendarHandler struct {
	calendar *service.CalendarService
	config   *service.ActiveConfigService
	windows  *service.PeriodWindowService
}

// NewCalendarHandler constructs a calendar handler.
func NewCalendarHandler(calendar *service.CalendarService, config *service.ActiveConfigService, windows *service.PeriodWindowService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar, config: config, windows: windows}
}

// ListYears godoc
// @Summary List school years
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/years [get]
func (h *CalendarHandler) ListYears(c *gin.Context) {
	years, err := h.calendar.ListYears(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// CreateYear godoc
// @Summary Create a school year
// @Description Registers an inactive school year and instantiates every period for it
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body service.CreateYearRequest true "Year payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /calendar/years [post]
func (h *CalendarHandler) CreateYear(c *gin.Context) {
	var req service.CreateYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid year payload"))
		return
	}
	year, err := h.calendar.CreateYear(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// Activate godoc
// @Summary Activate a year and period pair
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body service.ActivateRequest true "Activation payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /calendar/years/activate [post]
func (h *CalendarHandler) Activate(c *gin.Context) {
	var req service.ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activation payload"))
		return
	}
	cfg, err := h.calendar.Activate(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// GetActive godoc
// @Summary Resolve the active year and period
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/active [get]
func (h *CalendarHandler) GetActive(c *gin.Context) {
	cfg, err := h.config.Resolve(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// GetActiveWindow godoc
// @Summary Resolve the active period window as concrete dates
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /calendar/active/window [get]
func (h *CalendarHandler) GetActiveWindow(c *gin.Context) {
	window, err := h.windows.ActiveWindow(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}

// ListPeriods godoc
// @Summary List period definitions
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/periods [get]
func (h *CalendarHandler) ListPeriods(c *gin.Context) {
	periods, err := h.calendar.ListPeriods(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, nil)
}

// CreatePeriod godoc
// @Summary Create a period definition
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body service.PeriodRequest true "Period payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /calendar/periods [post]
func (h *CalendarHandler) CreatePeriod(c *gin.Context) {
	var req service.PeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload"))
		return
	}
	period, err := h.calendar.CreatePeriod(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, period)
}

// UpdatePeriod godoc
// @Summary Update a period definition
// @Tags Calendar
// @Accept json
// @Produce json
// @Param id path string true "Period id"
// @Param payload body service.PeriodRequest true "Period payload"
// @Success 200 {object} response.Envelope
// @Router /calendar/periods/{id} [put]
func (h *CalendarHandler) UpdatePeriod(c *gin.Context) {
	var req service.PeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload"))
		return
	}
	period, err := h.calendar.UpdatePeriod(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// DeletePeriod godoc
// @Summary Soft delete a period definition
// @Tags Calendar
// @Param id path string true "Period id"
// @Success 204 {object} nil
// @Router /calendar/periods/{id} [delete]
func (h *CalendarHandler) DeletePeriod(c *gin.Context) {
	if err := h.calendar.DeletePeriod(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListYearPeriods godoc
// @Summary List the period windows of one school year
// @Tags Calendar
// @Produce json
// @Param year path int true "Calendar year"
// @Success 200 {object} response.Envelope
// @Router /calendar/years/{year}/periods [get]
func (h *CalendarHandler) ListYearPeriods(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be numeric"))
		return
	}
	pairs, err := h.calendar.ListYearPeriods(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pairs, nil)
}

// UpdateYearWindow godoc
// @Summary Override one year's window for a period
// @Tags Calendar
// @Accept json
// @Produce json
// @Param year path int true "Calendar year"
// @Param periodId path string true "Period id"
// @Param payload body service.YearWindowRequest true "Window payload"
// @Success 200 {object} response.Envelope
// @Router /calendar/years/{year}/periods/{periodId} [put]
func (h *CalendarHandler) UpdateYearWindow(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be numeric"))
		return
	}
	var req service.YearWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid window payload"))
		return
	}
	if err := h.calendar.UpdateYearWindow(c.Request.Context(), year, c.Param("periodId"), req, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": true}, nil)
}
