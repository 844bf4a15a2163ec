package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edusonrisas/academia-api/internal/models"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
)

type windowPairReader interface {
	FindYearPeriod(ctx context.Context, year int, periodID string) (*models.YearPeriod, error)
	ListYearPeriods(ctx context.Context, year int) ([]models.YearPeriodDetail, error)
}

// PeriodWindowService resolves recurring month-day windows to concrete date
// ranges and validates dates against them.
type PeriodWindowService struct {
	pairs  windowPairReader
	config *ActiveConfigService
	now    func() time.Time
	logger *zap.Logger
}

// NewPeriodWindowService constructs a PeriodWindowService.
func NewPeriodWindowService(pairs windowPairReader, config *ActiveConfigService, logger *zap.Logger) *PeriodWindowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodWindowService{pairs: pairs, config: config, now: time.Now, logger: logger}
}

// ParseMonthDay validates and parses an "MM-DD" string.
func ParseMonthDay(value string) (time.Month, int, error) {
	t, err := time.Parse("01-02", value)
	if err != nil {
		return 0, 0, appErrors.ErrInvalidDate
	}
	return t.Month(), t.Day(), nil
}

// ResolveWindow materializes the window of one year period. A window whose
// end month-day precedes its start rolls the end into the following calendar
// year, so a November to February period stays contiguous.
func (s *PeriodWindowService) ResolveWindow(ctx context.Context, year int, periodID string) (*models.PeriodWindow, error) {
	pair, err := s.pairs.FindYearPeriod(ctx, year, periodID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("period %s is not configured for year %d", periodID, year))
		}
		return nil, appErrors.Wrap(err, "WINDOW_RESOLVE_FAILED", 500, "failed to resolve period window")
	}
	return buildWindow(pair, "")
}

// ActiveWindow materializes the window of the active year and period.
func (s *PeriodWindowService) ActiveWindow(ctx context.Context) (*models.PeriodWindow, error) {
	cfg, err := s.config.Require(ctx)
	if err != nil {
		return nil, err
	}
	window, err := s.ResolveWindow(ctx, cfg.Year, cfg.PeriodID)
	if err != nil {
		return nil, err
	}
	window.PeriodName = cfg.PeriodName
	return window, nil
}

// ValidateInWindow checks that a record date falls inside the window. Both
// sides are inclusive. Grade entries use this alone, so a teacher can record
// ahead for a date later in the running period.
func (s *PeriodWindowService) ValidateInWindow(window *models.PeriodWindow, date time.Time) error {
	if !window.Contains(date) {
		return appErrors.Clone(appErrors.ErrDateOutOfPeriod, fmt.Sprintf(
			"date %s is outside the %s window (%s to %s)",
			date.Format("2006-01-02"), window.PeriodName,
			window.Start.Format("2006-01-02"), window.End.Format("2006-01-02")))
	}
	return nil
}

// ValidateRecordDate checks that a record date is neither in the future nor
// outside the window. Attendance uses this: presence cannot be observed for
// a day that has not happened yet.
func (s *PeriodWindowService) ValidateRecordDate(window *models.PeriodWindow, date time.Time) error {
	today := s.now().Truncate(24 * time.Hour)
	if date.Truncate(24 * time.Hour).After(today) {
		return appErrors.ErrFutureDate
	}
	return s.ValidateInWindow(window, date)
}

// CheckOverlap verifies that the candidate month-day window does not overlap
// any other period's window. Windows are compared on a fixed reference year,
// touching boundaries count as overlap, and the conflicting period is named
// in the error.
func (s *PeriodWindowService) CheckOverlap(ctx context.Context, year int, excludePeriodID, startMonthDay, endMonthDay string) error {
	candidateStart, candidateEnd, err := referenceDates(startMonthDay, endMonthDay)
	if err != nil {
		return err
	}

	pairs, err := s.pairs.ListYearPeriods(ctx, year)
	if err != nil {
		return appErrors.Wrap(err, "OVERLAP_CHECK_FAILED", 500, "failed to load period windows")
	}

	for _, pair := range pairs {
		if pair.PeriodID == excludePeriodID {
			continue
		}
		otherStart, otherEnd, err := referenceDates(pair.StartMonthDay, pair.EndMonthDay)
		if err != nil {
			s.logger.Warn("skipping malformed period window",
				zap.String("period_id", pair.PeriodID),
				zap.String("start", pair.StartMonthDay),
				zap.String("end", pair.EndMonthDay))
			continue
		}
		if !candidateStart.After(otherEnd) && !candidateEnd.Before(otherStart) {
			return appErrors.Clone(appErrors.ErrPeriodOverlap, fmt.Sprintf("window overlaps period %q", pair.PeriodName))
		}
	}
	return nil
}

// buildWindow resolves a pair's month-day strings against its year.
func buildWindow(pair *models.YearPeriod, periodName string) (*models.PeriodWindow, error) {
	startMonth, startDay, err := ParseMonthDay(pair.StartMonthDay)
	if err != nil {
		return nil, err
	}
	endMonth, endDay, err := ParseMonthDay(pair.EndMonthDay)
	if err != nil {
		return nil, err
	}

	start := time.Date(pair.Year, startMonth, startDay, 0, 0, 0, 0, time.UTC)
	end := time.Date(pair.Year, endMonth, endDay, 0, 0, 0, 0, time.UTC)
	if end.Before(start) {
		end = end.AddDate(1, 0, 0)
	}

	return &models.PeriodWindow{
		Year:       pair.Year,
		PeriodID:   pair.PeriodID,
		PeriodName: periodName,
		Start:      start,
		End:        end,
	}, nil
}

// MonthDayWindowsOverlap reports whether two month-day windows intersect on
// the reference year. Touching boundaries count as overlap.
func MonthDayWindowsOverlap(aStart, aEnd, bStart, bEnd string) (bool, error) {
	firstStart, firstEnd, err := referenceDates(aStart, aEnd)
	if err != nil {
		return false, err
	}
	secondStart, secondEnd, err := referenceDates(bStart, bEnd)
	if err != nil {
		return false, err
	}
	return !firstStart.After(secondEnd) && !firstEnd.Before(secondStart), nil
}

// referenceDates places both month-day strings on a fixed leap year so
// windows compare without caring which school year they belong to.
func referenceDates(startMonthDay, endMonthDay string) (time.Time, time.Time, error) {
	startMonth, startDay, err := ParseMonthDay(startMonthDay)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endMonth, endDay, err := ParseMonthDay(endMonthDay)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(2000, startMonth, startDay, 0, 0, 0, 0, time.UTC)
	end := time.Date(2000, endMonth, endDay, 0, 0, 0, 0, time.UTC)
	return start, end, nil
}
