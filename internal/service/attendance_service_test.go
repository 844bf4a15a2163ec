package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusonrisas/academia-api/internal/models"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
)

type stubAttendanceRepo struct {
	saved   []*models.Attendance
	summary *models.AttendanceSummary
}

func (s *stubAttendanceRepo) Upsert(ctx context.Context, record *models.Attendance) error {
	s.saved = append(s.saved, record)
	return nil
}

func (s *stubAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	var list []models.Attendance
	for _, record := range s.saved {
		list = append(list, *record)
	}
	return list, len(list), nil
}

func (s *stubAttendanceRepo) SummaryInWindow(ctx context.Context, enrollmentID string, start, end time.Time) (*models.AttendanceSummary, error) {
	return s.summary, nil
}

func newAttendanceFixture(t *testing.T) (*stubAttendanceRepo, *AttendanceService) {
	t.Helper()

	updated := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	reader := &stubConfigReader{
		config: &models.ActiveConfig{Year: 2026, PeriodID: "p1", PeriodName: "Primer Periodo", UpdatedAt: updated},
		active: &models.SchoolYear{Year: 2026, Status: models.YearStatusActive, UpdatedAt: updated},
	}
	configSvc := NewActiveConfigService(reader, NewCacheService(newMemoryCacheRepo(), nil, time.Minute, zap.NewNop(), true), time.Minute, zap.NewNop())

	pairs := &stubPairReader{pairs: map[string]*models.YearPeriod{
		"p1": {Year: 2026, PeriodID: "p1", StartMonthDay: "02-01", EndMonthDay: "04-15"},
	}}
	windows := NewPeriodWindowService(pairs, configSvc, zap.NewNop())
	windows.now = func() time.Time { return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC) }

	assignments := &stubAssignmentReader{assignments: map[string]*models.SubjectAssignment{
		"as1": {ID: "as1", TeacherID: "teacher-1", CourseID: "c1", Year: 2026, Status: models.AssignmentStatusActive},
	}}
	enrollments := &stubEnrollmentReader{enrollments: map[string]*models.Enrollment{
		"en1": {ID: "en1", CourseID: "c1", Year: 2026, Status: models.EnrollmentStatusActive},
	}}

	repo := &stubAttendanceRepo{}
	return repo, NewAttendanceService(repo, assignments, enrollments, windows, configSvc, validator.New(), zap.NewNop())
}

func attendanceRequest(date, status string) UpsertAttendanceRequest {
	return UpsertAttendanceRequest{
		EnrollmentID: "en1",
		AssignmentID: "as1",
		Date:         date,
		Status:       status,
	}
}

func TestAttendanceUpsertInsideWindow(t *testing.T) {
	repo, svc := newAttendanceFixture(t)

	record, err := svc.Upsert(context.Background(), attendanceRequest("2026-03-05", "ABSENT"), adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusAbsent, record.Status)
	require.Len(t, repo.saved, 1)
}

func TestAttendanceUpsertRejectsUnknownStatus(t *testing.T) {
	_, svc := newAttendanceFixture(t)

	_, err := svc.Upsert(context.Background(), attendanceRequest("2026-03-05", "SLEEPING"), adminClaims())
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAttendanceUpsertRejectsFutureDate(t *testing.T) {
	_, svc := newAttendanceFixture(t)

	_, err := svc.Upsert(context.Background(), attendanceRequest("2026-04-01", "PRESENT"), adminClaims())
	assert.ErrorIs(t, err, appErrors.ErrFutureDate)
}

func TestAttendanceUpsertRejectsDateOutsideWindow(t *testing.T) {
	_, svc := newAttendanceFixture(t)

	_, err := svc.Upsert(context.Background(), attendanceRequest("2026-01-20", "PRESENT"), adminClaims())
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrDateOutOfPeriod.Code, appErr.Code)
}

func TestAttendanceUpsertForeignTeacherForbidden(t *testing.T) {
	_, svc := newAttendanceFixture(t)

	teacher := &models.JWTClaims{UserID: "teacher-2", Role: models.RoleTeacher}
	_, err := svc.Upsert(context.Background(), attendanceRequest("2026-03-05", "PRESENT"), teacher)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAttendanceSummaryUsesActiveWindow(t *testing.T) {
	repo, svc := newAttendanceFixture(t)
	repo.summary = &models.AttendanceSummary{Present: 18, Absent: 2, Total: 20, Percent: 90}

	summary, err := svc.Summary(context.Background(), "en1")
	require.NoError(t, err)
	assert.Equal(t, 18, summary.Present)
	assert.Equal(t, 90.0, summary.Percent)
}
