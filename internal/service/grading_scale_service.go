package service

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edusonrisas/academia-api/internal/models"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
)

type gradingScaleRepo interface {
	GetOrCreate(ctx context.Context, year int) (*models.GradingScale, error)
	Update(ctx context.Context, scale *models.GradingScale) error
}

type scaleAuditLogger interface {
	InsertAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// UpdateGradingScaleRequest carries new tier cutoffs for the active year.
type UpdateGradingScaleRequest struct {
	SuperiorCutoff float64 `json:"superior_cutoff" validate:"required,gt=0,lte=5"`
	HighCutoff     float64 `json:"high_cutoff" validate:"required,gt=0,lte=5"`
	BasicCutoff    float64 `json:"basic_cutoff" validate:"required,gte=0,lte=5"`
	PassLevel      float64 `json:"pass_level" validate:"required,gt=0,lte=100"`
}

// GradingScaleService manages the per-year tier configuration.
type GradingScaleService struct {
	scales    gradingScaleRepo
	config    *ActiveConfigService
	audit     scaleAuditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradingScaleService constructs a GradingScaleService.
func NewGradingScaleService(scales gradingScaleRepo, config *ActiveConfigService, audit scaleAuditLogger, validate *validator.Validate, logger *zap.Logger) *GradingScaleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradingScaleService{scales: scales, config: config, audit: audit, validator: validate, logger: logger}
}

// GetActive returns the grading scale of the active year, creating the
// default one on first access.
func (s *GradingScaleService) GetActive(ctx context.Context) (*models.GradingScale, error) {
	cfg, err := s.config.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, appErrors.ErrNoActiveYear
	}
	scale, err := s.scales.GetOrCreate(ctx, cfg.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, "SCALE_LOAD_FAILED", 500, "failed to load grading scale")
	}
	return scale, nil
}

// Update replaces the active year's cutoffs. Cutoffs must ascend from basic
// through superior or the tiers would stop being a partition.
func (s *GradingScaleService) Update(ctx context.Context, req UpdateGradingScaleRequest, actor *models.JWTClaims) (*models.GradingScale, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading scale payload")
	}

	scale, err := s.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	before := *scale
	scale.SuperiorCutoff = req.SuperiorCutoff
	scale.HighCutoff = req.HighCutoff
	scale.BasicCutoff = req.BasicCutoff
	scale.PassLevel = req.PassLevel
	if actor != nil {
		scale.UpdatedBy = &actor.UserID
	}

	if !scale.Ascending() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cutoffs must satisfy basic < high < superior")
	}

	if err := s.scales.Update(ctx, scale); err != nil {
		return nil, appErrors.Wrap(err, "SCALE_UPDATE_FAILED", 500, "failed to update grading scale")
	}

	s.writeAudit(ctx, actor, &before, scale)
	s.logger.Info("grading scale updated", zap.Int("year", scale.Year))
	return scale, nil
}

func (s *GradingScaleService) writeAudit(ctx context.Context, actor *models.JWTClaims, before, after *models.GradingScale) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     models.AuditActionScaleUpdate,
		Resource:   "grading_scale",
		ResourceID: &after.ID,
	}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if raw, err := json.Marshal(before); err == nil {
		entry.OldValues = raw
	}
	if raw, err := json.Marshal(after); err == nil {
		entry.NewValues = raw
	}
	if err := s.audit.InsertAuditLog(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", zap.Error(err))
	}
}
