package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edusonrisas/academia-api/internal/service"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
	"github.com/edusonrisas/academia-api/pkg/response"
)

// GradingScaleHandler exposes the grading scale endpoints.
type GradingScaleHandler struct {
	service *service.GradingScaleService
}

// NewGradingScaleHandler constructs a grading scale handler.
func NewGradingScaleHandler(svc *service.GradingScaleService) *GradingScaleHandler {
	return &GradingScaleHandler{service: svc}
}

// Get godoc
// @Summary Get the grading scale of the active year
// @Tags Grading Scale
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /grading-scale [get]
func (h *GradingScaleHandler) Get(c *gin.Context) {
	scale, err := h.service.GetActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scale, nil)
}

// Update godoc
// @Summary Update the grading scale cutoffs of the active year
// @Tags Grading Scale
// @Accept json
// @Produce json
// @Param payload body service.UpdateGradingScaleRequest true "Cutoffs"
// @Success 200 {object} response.Envelope
// @Router /grading-scale [put]
func (h *GradingScaleHandler) Update(c *gin.Context) {
	var req service.UpdateGradingScaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading scale payload"))
		return
	}
	scale, err := h.service.Update(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scale, nil)
}
