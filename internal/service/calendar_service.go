package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edusonrisas/academia-api/internal/models"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
)

type schoolYearRepo interface {
	List(ctx context.Context) ([]models.SchoolYear, error)
	FindByYear(ctx context.Context, year int) (*models.SchoolYear, error)
	ExistsByYear(ctx context.Context, year int) (bool, error)
	CreateWithPeriods(ctx context.Context, sy *models.SchoolYear, periods []models.PeriodDefinition) error
	ActivateYearPeriod(ctx context.Context, year int, periodID string) error
}

type periodRepo interface {
	List(ctx context.Context, includeDeleted bool) ([]models.PeriodDefinition, error)
	FindByID(ctx context.Context, id string) (*models.PeriodDefinition, error)
	FindByName(ctx context.Context, name string) (*models.PeriodDefinition, error)
	CreateWithYearRows(ctx context.Context, period *models.PeriodDefinition, years []models.SchoolYear) error
	UpdateWindow(ctx context.Context, period *models.PeriodDefinition) error
	SoftDelete(ctx context.Context, id, deletedBy string) error
	ListYearPeriods(ctx context.Context, year int) ([]models.YearPeriodDetail, error)
	UpdateYearWindow(ctx context.Context, year int, periodID, startMonthDay, endMonthDay string) error
}

type calendarAuditLogger interface {
	InsertAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// CreateYearRequest is the payload for registering a school year.
type CreateYearRequest struct {
	Year int `json:"year" validate:"required"`
}

// ActivateRequest selects the year and period pair to switch to.
type ActivateRequest struct {
	Year     int    `json:"year" validate:"required"`
	PeriodID string `json:"period_id" validate:"required"`
}

// PeriodRequest is the payload for creating or updating a period definition.
type PeriodRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=80"`
	StartMonthDay string `json:"start_month_day" validate:"required"`
	EndMonthDay   string `json:"end_month_day" validate:"required"`
}

// YearWindowRequest overrides one year's window for a period.
type YearWindowRequest struct {
	StartMonthDay string `json:"start_month_day" validate:"required"`
	EndMonthDay   string `json:"end_month_day" validate:"required"`
}

// CalendarService manages school years, period definitions and the
// activation workflow.
type CalendarService struct {
	years     schoolYearRepo
	periods   periodRepo
	config    *ActiveConfigService
	audit     calendarAuditLogger
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCalendarService constructs a CalendarService.
func NewCalendarService(years schoolYearRepo, periods periodRepo, config *ActiveConfigService, audit calendarAuditLogger, validate *validator.Validate, logger *zap.Logger) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		years:     years,
		periods:   periods,
		config:    config,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// ListYears returns every registered school year.
func (s *CalendarService) ListYears(ctx context.Context) ([]models.SchoolYear, error) {
	years, err := s.years.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, "YEAR_LIST_FAILED", 500, "failed to list school years")
	}
	return years, nil
}

// CreateYear registers a new inactive school year. Only the previous,
// current and next calendar years can be created, and every existing period
// definition is instantiated for the new year in the same transaction.
func (s *CalendarService) CreateYear(ctx context.Context, req CreateYearRequest, actor *models.JWTClaims) (*models.SchoolYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid year payload")
	}

	current := s.now().Year()
	if req.Year < current-1 || req.Year > current+1 {
		return nil, appErrors.Clone(appErrors.ErrYearOutOfRange,
			fmt.Sprintf("year must be between %d and %d", current-1, current+1))
	}

	exists, err := s.years.ExistsByYear(ctx, req.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, "YEAR_CREATE_FAILED", 500, "failed to check year uniqueness")
	}
	if exists {
		return nil, appErrors.ErrDuplicateYear
	}

	periods, err := s.periods.List(ctx, false)
	if err != nil {
		return nil, appErrors.Wrap(err, "YEAR_CREATE_FAILED", 500, "failed to load period definitions")
	}

	sy := &models.SchoolYear{Year: req.Year}
	if err := s.years.CreateWithPeriods(ctx, sy, periods); err != nil {
		return nil, appErrors.Wrap(err, "YEAR_CREATE_FAILED", 500, "failed to create school year")
	}

	s.writeAudit(ctx, actor, models.AuditActionYearCreate, "school_year", sy.ID, nil, sy)
	s.logger.Info("school year created", zap.Int("year", sy.Year), zap.Int("periods", len(periods)))
	return sy, nil
}

// Activate switches the active configuration to the given year and period
// pair, then refreshes the cached snapshot so readers see the new state.
func (s *CalendarService) Activate(ctx context.Context, req ActivateRequest, actor *models.JWTClaims) (*models.ActiveConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activation payload")
	}

	previous, err := s.config.Resolve(ctx)
	if err != nil {
		s.logger.Warn("could not resolve previous configuration before activation", zap.Error(err))
	}

	if err := s.years.ActivateYearPeriod(ctx, req.Year, req.PeriodID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound,
				fmt.Sprintf("period %s is not configured for year %d", req.PeriodID, req.Year))
		}
		return nil, appErrors.Wrap(err, "ACTIVATION_FAILED", 500, "failed to activate year and period")
	}

	cfg, err := s.config.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, actor, models.AuditActionYearActivate, "school_year", fmt.Sprintf("%d", req.Year), previous, cfg)
	s.logger.Info("active configuration switched", zap.Int("year", req.Year), zap.String("period_id", req.PeriodID))
	return cfg, nil
}

// ListPeriods returns the non-deleted period definitions.
func (s *CalendarService) ListPeriods(ctx context.Context) ([]models.PeriodDefinition, error) {
	periods, err := s.periods.List(ctx, false)
	if err != nil {
		return nil, appErrors.Wrap(err, "PERIOD_LIST_FAILED", 500, "failed to list periods")
	}
	return periods, nil
}

// CreatePeriod adds a period definition. The name must be unique among
// non-deleted periods and the window must not overlap any existing one. The
// definition fans out to every registered year as an inactive pair.
func (s *CalendarService) CreatePeriod(ctx context.Context, req PeriodRequest, actor *models.JWTClaims) (*models.PeriodDefinition, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}
	if err := s.validateWindowAgainstPeriods(ctx, "", req.StartMonthDay, req.EndMonthDay); err != nil {
		return nil, err
	}

	if _, err := s.periods.FindByName(ctx, req.Name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("period %q already exists", req.Name))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, "PERIOD_CREATE_FAILED", 500, "failed to check period uniqueness")
	}

	years, err := s.years.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, "PERIOD_CREATE_FAILED", 500, "failed to load school years")
	}

	period := &models.PeriodDefinition{
		Name:          req.Name,
		StartMonthDay: req.StartMonthDay,
		EndMonthDay:   req.EndMonthDay,
	}
	if actor != nil {
		period.CreatedBy = &actor.UserID
	}
	if err := s.periods.CreateWithYearRows(ctx, period, years); err != nil {
		return nil, appErrors.Wrap(err, "PERIOD_CREATE_FAILED", 500, "failed to create period")
	}

	s.config.Invalidate(ctx)
	s.writeAudit(ctx, actor, models.AuditActionPeriodCreate, "period", period.ID, nil, period)
	s.logger.Info("period created", zap.String("name", period.Name), zap.Int("years", len(years)))
	return period, nil
}

// UpdatePeriod changes a definition's name or window. The new window is
// checked against every other period and propagates to all year rows.
func (s *CalendarService) UpdatePeriod(ctx context.Context, id string, req PeriodRequest, actor *models.JWTClaims) (*models.PeriodDefinition, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}

	period, err := s.periods.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.Wrap(err, "PERIOD_UPDATE_FAILED", 500, "failed to load period")
	}
	if period.Deleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
	}

	if err := s.validateWindowAgainstPeriods(ctx, id, req.StartMonthDay, req.EndMonthDay); err != nil {
		return nil, err
	}

	before := *period
	period.Name = req.Name
	period.StartMonthDay = req.StartMonthDay
	period.EndMonthDay = req.EndMonthDay
	if err := s.periods.UpdateWindow(ctx, period); err != nil {
		return nil, appErrors.Wrap(err, "PERIOD_UPDATE_FAILED", 500, "failed to update period")
	}

	s.config.Invalidate(ctx)
	s.writeAudit(ctx, actor, models.AuditActionPeriodUpdate, "period", period.ID, before, period)
	return period, nil
}

// DeletePeriod soft-deletes a definition. The active period cannot be
// deleted; its pairs are deactivated so the gap is visible immediately.
func (s *CalendarService) DeletePeriod(ctx context.Context, id string, actor *models.JWTClaims) error {
	period, err := s.periods.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return appErrors.Wrap(err, "PERIOD_DELETE_FAILED", 500, "failed to load period")
	}

	cfg, err := s.config.Resolve(ctx)
	if err != nil {
		return err
	}
	if cfg != nil && cfg.PeriodID == id {
		return appErrors.Clone(appErrors.ErrConflict, "cannot delete the active period")
	}

	deletedBy := ""
	if actor != nil {
		deletedBy = actor.UserID
	}
	if err := s.periods.SoftDelete(ctx, id, deletedBy); err != nil {
		return appErrors.Wrap(err, "PERIOD_DELETE_FAILED", 500, "failed to delete period")
	}

	s.config.Invalidate(ctx)
	s.writeAudit(ctx, actor, models.AuditActionPeriodDelete, "period", id, period, nil)
	return nil
}

// ListYearPeriods returns the period rows of one year with names joined.
func (s *CalendarService) ListYearPeriods(ctx context.Context, year int) ([]models.YearPeriodDetail, error) {
	if _, err := s.years.FindByYear(ctx, year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("school year %d not found", year))
		}
		return nil, appErrors.Wrap(err, "YEAR_PERIOD_LIST_FAILED", 500, "failed to load school year")
	}
	pairs, err := s.periods.ListYearPeriods(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, "YEAR_PERIOD_LIST_FAILED", 500, "failed to list year periods")
	}
	return pairs, nil
}

// UpdateYearWindow overrides the window of one period for one year without
// touching the definition or other years.
func (s *CalendarService) UpdateYearWindow(ctx context.Context, year int, periodID string, req YearWindowRequest, actor *models.JWTClaims) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid window payload")
	}
	if err := s.validateWindowAgainstYear(ctx, year, periodID, req.StartMonthDay, req.EndMonthDay); err != nil {
		return err
	}
	if err := s.periods.UpdateYearWindow(ctx, year, periodID, req.StartMonthDay, req.EndMonthDay); err != nil {
		return appErrors.Wrap(err, "YEAR_WINDOW_UPDATE_FAILED", 500, "failed to update year window")
	}
	s.config.Invalidate(ctx)
	s.writeAudit(ctx, actor, models.AuditActionPeriodUpdate, "year_period", fmt.Sprintf("%d/%s", year, periodID), nil, req)
	return nil
}

// validateWindowAgainstPeriods checks MM-DD syntax and overlap against every
// other period definition.
func (s *CalendarService) validateWindowAgainstPeriods(ctx context.Context, excludeID, start, end string) error {
	if err := validateMonthDayWindow(start, end); err != nil {
		return err
	}

	periods, err := s.periods.List(ctx, false)
	if err != nil {
		return appErrors.Wrap(err, "OVERLAP_CHECK_FAILED", 500, "failed to load periods")
	}
	for _, other := range periods {
		if other.ID == excludeID {
			continue
		}
		overlap, err := MonthDayWindowsOverlap(start, end, other.StartMonthDay, other.EndMonthDay)
		if err != nil {
			s.logger.Warn("skipping malformed period window", zap.String("period_id", other.ID))
			continue
		}
		if overlap {
			return appErrors.Clone(appErrors.ErrPeriodOverlap, fmt.Sprintf("window overlaps period %q", other.Name))
		}
	}
	return nil
}

// validateWindowAgainstYear checks MM-DD syntax and overlap against the
// other windows of the same year.
func (s *CalendarService) validateWindowAgainstYear(ctx context.Context, year int, excludePeriodID, start, end string) error {
	if err := validateMonthDayWindow(start, end); err != nil {
		return err
	}

	pairs, err := s.periods.ListYearPeriods(ctx, year)
	if err != nil {
		return appErrors.Wrap(err, "OVERLAP_CHECK_FAILED", 500, "failed to load year periods")
	}
	for _, other := range pairs {
		if other.PeriodID == excludePeriodID {
			continue
		}
		overlap, err := MonthDayWindowsOverlap(start, end, other.StartMonthDay, other.EndMonthDay)
		if err != nil {
			continue
		}
		if overlap {
			return appErrors.Clone(appErrors.ErrPeriodOverlap, fmt.Sprintf("window overlaps period %q", other.PeriodName))
		}
	}
	return nil
}

// validateMonthDayWindow checks MM-DD syntax on both ends and that the
// window runs forward. An inverted window would also slip past the overlap
// comparison, so it is rejected before any overlap check runs.
func validateMonthDayWindow(start, end string) error {
	if _, _, err := ParseMonthDay(start); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidDate, "start date must use MM-DD format")
	}
	if _, _, err := ParseMonthDay(end); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidDate, "end date must use MM-DD format")
	}
	startRef, endRef, err := referenceDates(start, end)
	if err != nil {
		return appErrors.Clone(appErrors.ErrInvalidDate, "window must use MM-DD format")
	}
	if !endRef.After(startRef) {
		return appErrors.Clone(appErrors.ErrInvalidDate, "end date must be after start date")
	}
	return nil
}

// writeAudit records a calendar mutation in the audit trail. Audit failures
// are logged and never fail the mutation.
func (s *CalendarService) writeAudit(ctx context.Context, actor *models.JWTClaims, action, resource, resourceID string, before, after interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:   action,
		Resource: resource,
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if before != nil {
		if raw, err := json.Marshal(before); err == nil {
			entry.OldValues = raw
		}
	}
	if after != nil {
		if raw, err := json.Marshal(after); err == nil {
			entry.NewValues = raw
		}
	}
	if err := s.audit.InsertAuditLog(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
