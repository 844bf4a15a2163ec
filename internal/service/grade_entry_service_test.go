package service

import (
	"context"
	"database/sql"
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

type stubGradeEntryRepo struct {
	entries map[string]*models.GradeEntry
	saved   []*models.GradeEntry
	deleted []string
}

func (s *stubGradeEntryRepo) Upsert(ctx context.Context, entry *models.GradeEntry) error {
	s.saved = append(s.saved, entry)
	return nil
}

func (s *stubGradeEntryRepo) List(ctx context.Context, filter models.GradeEntryFilter) ([]models.GradeEntry, int, error) {
	var list []models.GradeEntry
	for _, entry := range s.entries {
		list = append(list, *entry)
	}
	return list, len(list), nil
}

func (s *stubGradeEntryRepo) FindByID(ctx context.Context, id string) (*models.GradeEntry, error) {
	if entry, ok := s.entries[id]; ok {
		return entry, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubGradeEntryRepo) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubAssignmentReader struct {
	assignments map[string]*models.SubjectAssignment
}

func (s *stubAssignmentReader) FindByID(ctx context.Context, id string) (*models.SubjectAssignment, error) {
	if assignment, ok := s.assignments[id]; ok {
		return assignment, nil
	}
	return nil, sql.ErrNoRows
}

type stubEnrollmentReader struct {
	enrollments map[string]*models.Enrollment
}

func (s *stubEnrollmentReader) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if enrollment, ok := s.enrollments[id]; ok {
		return enrollment, nil
	}
	return nil, sql.ErrNoRows
}

type gradeFixture struct {
	repo    *stubGradeEntryRepo
	service *GradeEntryService
}

func newGradeFixture(t *testing.T) gradeFixture {
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

	repo := &stubGradeEntryRepo{entries: map[string]*models.GradeEntry{}}
	service := NewGradeEntryService(repo, assignments, enrollments, windows, configSvc, validator.New(), zap.NewNop())
	return gradeFixture{repo: repo, service: service}
}

func upsertRequest(date string) UpsertGradeEntryRequest {
	return UpsertGradeEntryRequest{
		EnrollmentID: "en1",
		AssignmentID: "as1",
		Date:         date,
		Score:        ptrFloat(4.2),
	}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func TestGradeUpsertInsideWindow(t *testing.T) {
	f := newGradeFixture(t)

	entry, err := f.service.Upsert(context.Background(), upsertRequest("2026-03-05"), adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "p1", entry.PeriodID)
	assert.Equal(t, 4.2, *entry.Score)
	require.Len(t, f.repo.saved, 1)
}

func TestGradeUpsertAcceptsFutureDateInsideWindow(t *testing.T) {
	f := newGradeFixture(t)

	// Fixture clock is 2026-03-10; the window runs through 04-15, so a
	// teacher may enter tomorrow's assessment ahead of time.
	entry, err := f.service.Upsert(context.Background(), upsertRequest("2026-03-11"), adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "p1", entry.PeriodID)
}

func TestGradeUpsertRejectsDateOutsideWindow(t *testing.T) {
	f := newGradeFixture(t)

	_, err := f.service.Upsert(context.Background(), upsertRequest("2026-01-20"), adminClaims())
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrDateOutOfPeriod.Code, appErr.Code)
}

func TestGradeUpsertRequiresScoreOrRemark(t *testing.T) {
	f := newGradeFixture(t)

	req := upsertRequest("2026-03-05")
	req.Score = nil
	_, err := f.service.Upsert(context.Background(), req, adminClaims())
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	remark := "Participa en clase"
	req.Remark = &remark
	entry, err := f.service.Upsert(context.Background(), req, adminClaims())
	require.NoError(t, err)
	assert.Nil(t, entry.Score)
	assert.Equal(t, "Participa en clase", *entry.Remark)
}

func TestGradeUpsertForeignTeacherForbidden(t *testing.T) {
	f := newGradeFixture(t)

	teacher := &models.JWTClaims{UserID: "teacher-2", Role: models.RoleTeacher}
	_, err := f.service.Upsert(context.Background(), upsertRequest("2026-03-05"), teacher)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestGradeUpsertOwningTeacherAllowed(t *testing.T) {
	f := newGradeFixture(t)

	teacher := &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher}
	_, err := f.service.Upsert(context.Background(), upsertRequest("2026-03-05"), teacher)
	require.NoError(t, err)
}

func TestGradeDeleteChecksOwnership(t *testing.T) {
	f := newGradeFixture(t)
	f.repo.entries["g1"] = &models.GradeEntry{ID: "g1", AssignmentID: "as1"}

	foreign := &models.JWTClaims{UserID: "teacher-2", Role: models.RoleTeacher}
	err := f.service.Delete(context.Background(), "g1", foreign)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	require.NoError(t, f.service.Delete(context.Background(), "g1", adminClaims()))
	assert.Equal(t, []string{"g1"}, f.repo.deleted)
}
