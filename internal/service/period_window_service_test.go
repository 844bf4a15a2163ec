package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusonrisas/academia-api/internal/models"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
)

type stubPairReader struct {
	pairs map[string]*models.YearPeriod
	list  []models.YearPeriodDetail
}

func (s *stubPairReader) FindYearPeriod(ctx context.Context, year int, periodID string) (*models.YearPeriod, error) {
	if pair, ok := s.pairs[periodID]; ok && pair.Year == year {
		return pair, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubPairReader) ListYearPeriods(ctx context.Context, year int) ([]models.YearPeriodDetail, error) {
	return s.list, nil
}

func TestParseMonthDay(t *testing.T) {
	month, day, err := ParseMonthDay("02-15")
	require.NoError(t, err)
	assert.Equal(t, time.February, month)
	assert.Equal(t, 15, day)

	_, _, err = ParseMonthDay("13-01")
	assert.ErrorIs(t, err, appErrors.ErrInvalidDate)

	_, _, err = ParseMonthDay("2026-02-15")
	assert.ErrorIs(t, err, appErrors.ErrInvalidDate)
}

func TestResolveWindowSameYear(t *testing.T) {
	pairs := &stubPairReader{pairs: map[string]*models.YearPeriod{
		"p1": {Year: 2026, PeriodID: "p1", StartMonthDay: "02-01", EndMonthDay: "04-15"},
	}}
	svc := NewPeriodWindowService(pairs, nil, zap.NewNop())

	window, err := svc.ResolveWindow(context.Background(), 2026, "p1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), window.Start)
	assert.Equal(t, time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC), window.End)
}

func TestResolveWindowWrapsYearBoundary(t *testing.T) {
	pairs := &stubPairReader{pairs: map[string]*models.YearPeriod{
		"p4": {Year: 2026, PeriodID: "p4", StartMonthDay: "11-01", EndMonthDay: "02-10"},
	}}
	svc := NewPeriodWindowService(pairs, nil, zap.NewNop())

	window, err := svc.ResolveWindow(context.Background(), 2026, "p4")
	require.NoError(t, err)
	assert.Equal(t, 2026, window.Start.Year())
	assert.Equal(t, 2027, window.End.Year())
	assert.True(t, window.Contains(time.Date(2027, time.January, 15, 0, 0, 0, 0, time.UTC)))
}

func TestResolveWindowUnknownPeriod(t *testing.T) {
	svc := NewPeriodWindowService(&stubPairReader{}, nil, zap.NewNop())

	_, err := svc.ResolveWindow(context.Background(), 2026, "missing")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestValidateRecordDate(t *testing.T) {
	svc := NewPeriodWindowService(&stubPairReader{}, nil, zap.NewNop())
	svc.now = func() time.Time {
		return time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)
	}
	window := &models.PeriodWindow{
		PeriodName: "Primer Periodo",
		Start:      time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC),
	}

	assert.NoError(t, svc.ValidateRecordDate(window, time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)))
	assert.NoError(t, svc.ValidateRecordDate(window, window.Start))
	assert.NoError(t, svc.ValidateRecordDate(window, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)))

	err := svc.ValidateRecordDate(window, time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, appErrors.ErrFutureDate)

	err = svc.ValidateRecordDate(window, time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC))
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrDateOutOfPeriod.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Primer Periodo")
}

func TestValidateInWindowIgnoresFutureDates(t *testing.T) {
	svc := NewPeriodWindowService(&stubPairReader{}, nil, zap.NewNop())
	svc.now = func() time.Time {
		return time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)
	}
	window := &models.PeriodWindow{
		PeriodName: "Primer Periodo",
		Start:      time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC),
	}

	assert.NoError(t, svc.ValidateInWindow(window, time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)))
	assert.NoError(t, svc.ValidateInWindow(window, window.End))

	err := svc.ValidateInWindow(window, time.Date(2026, time.April, 16, 0, 0, 0, 0, time.UTC))
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrDateOutOfPeriod.Code, appErr.Code)
}

func TestMonthDayWindowsOverlap(t *testing.T) {
	overlap, err := MonthDayWindowsOverlap("02-01", "04-15", "04-16", "06-30")
	require.NoError(t, err)
	assert.False(t, overlap)

	// Touching boundaries count as overlap.
	overlap, err = MonthDayWindowsOverlap("02-01", "04-15", "04-15", "06-30")
	require.NoError(t, err)
	assert.True(t, overlap)

	overlap, err = MonthDayWindowsOverlap("02-01", "04-15", "03-01", "03-20")
	require.NoError(t, err)
	assert.True(t, overlap)
}

func TestCheckOverlapNamesConflictingPeriod(t *testing.T) {
	pairs := &stubPairReader{list: []models.YearPeriodDetail{
		{
			YearPeriod: models.YearPeriod{PeriodID: "p1", StartMonthDay: "02-01", EndMonthDay: "04-15"},
			PeriodName: "Primer Periodo",
		},
		{
			YearPeriod: models.YearPeriod{PeriodID: "p2", StartMonthDay: "04-16", EndMonthDay: "06-30"},
			PeriodName: "Segundo Periodo",
		},
	}}
	svc := NewPeriodWindowService(pairs, nil, zap.NewNop())

	err := svc.CheckOverlap(context.Background(), 2026, "", "04-10", "05-01")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPeriodOverlap.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Primer Periodo")

	// The excluded period does not conflict with itself.
	assert.NoError(t, svc.CheckOverlap(context.Background(), 2026, "p1", "02-01", "04-15"))
}
