package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusonrisas/academia-api/internal/models"
	"github.com/edusonrisas/academia-api/pkg/export"
)

type stubReportCardRepo struct {
	cards       map[string]*models.ReportCardDetail
	documents   map[string]models.ReportCardDocument
	deleted     []string
	periodNames map[string]string
}

func newStubReportCardRepo() *stubReportCardRepo {
	return &stubReportCardRepo{
		cards:       make(map[string]*models.ReportCardDetail),
		documents:   make(map[string]models.ReportCardDocument),
		periodNames: make(map[string]string),
	}
}

func (s *stubReportCardRepo) FindByID(ctx context.Context, id string) (*models.ReportCardDetail, error) {
	if card, ok := s.cards[id]; ok {
		return card, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubReportCardRepo) List(ctx context.Context, filter models.ReportCardFilter) ([]models.ReportCardDetail, int, error) {
	var list []models.ReportCardDetail
	for _, card := range s.cards {
		list = append(list, *card)
	}
	return list, len(list), nil
}

func (s *stubReportCardRepo) ListByCoursePeriod(ctx context.Context, courseID, periodID string) ([]models.ReportCardDetail, error) {
	var list []models.ReportCardDetail
	for _, card := range s.cards {
		if card.CourseID == courseID && card.PeriodID == periodID {
			list = append(list, *card)
		}
	}
	return list, nil
}

func (s *stubReportCardRepo) CreateMissing(ctx context.Context, enrollments []models.Enrollment, periodID string, generatedBy string) (int, error) {
	created := 0
	for _, enrollment := range enrollments {
		exists := false
		for _, card := range s.cards {
			if card.EnrollmentID == enrollment.ID && card.PeriodID == periodID {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		id := fmt.Sprintf("rc-%s-%s", enrollment.ID, periodID)
		card := &models.ReportCardDetail{StudentName: enrollment.FullName(), PeriodName: s.periodNames[periodID]}
		card.ID = id
		card.EnrollmentID = enrollment.ID
		card.PeriodID = periodID
		card.CourseID = enrollment.CourseID
		card.Year = enrollment.Year
		card.GeneratedBy = generatedBy
		s.cards[id] = card
		created++
	}
	return created, nil
}

func (s *stubReportCardRepo) UpdateDocument(ctx context.Context, id string, document models.ReportCardDocument, generatedBy string) error {
	s.documents[id] = document
	if card, ok := s.cards[id]; ok {
		card.Document = document
	}
	return nil
}

func (s *stubReportCardRepo) UpdateComments(ctx context.Context, id string, comments *string) error {
	if card, ok := s.cards[id]; ok {
		card.Comments = comments
	}
	return nil
}

func (s *stubReportCardRepo) SoftDelete(ctx context.Context, id, deletedBy string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubCourseLister struct {
	enrollments []models.Enrollment
}

func (s *stubCourseLister) ListByCourse(ctx context.Context, courseID string, year int) ([]models.Enrollment, error) {
	return s.enrollments, nil
}

type stubAssignmentLister struct {
	assignments []models.SubjectAssignmentDetail
}

func (s *stubAssignmentLister) ListByCourse(ctx context.Context, courseID string, year int) ([]models.SubjectAssignmentDetail, error) {
	return s.assignments, nil
}

type stubYearPairLister struct {
	pairs []models.YearPeriodDetail
}

func (s *stubYearPairLister) ListYearPeriods(ctx context.Context, year int) ([]models.YearPeriodDetail, error) {
	return s.pairs, nil
}

type stubScaleProvider struct{}

func (s *stubScaleProvider) GetOrCreate(ctx context.Context, year int) (*models.GradingScale, error) {
	return &models.GradingScale{
		Year:           year,
		SuperiorCutoff: models.DefaultSuperiorCutoff,
		HighCutoff:     models.DefaultHighCutoff,
		BasicCutoff:    models.DefaultBasicCutoff,
		PassLevel:      models.DefaultPassLevel,
	}, nil
}

type stubRenderer struct {
	rendered []export.ReportCardData
	archived [][]export.ReportCardData
}

func (s *stubRenderer) Render(data export.ReportCardData) ([]byte, error) {
	s.rendered = append(s.rendered, data)
	return []byte("%PDF"), nil
}

func (s *stubRenderer) RenderArchive(cards []export.ReportCardData) ([]byte, error) {
	s.archived = append(s.archived, cards)
	return []byte("PK"), nil
}

type reportFixture struct {
	repo     *stubReportCardRepo
	renderer *stubRenderer
	grades   *stubGradeAggregates
	service  *ReportCardService
}

func newReportFixture(t *testing.T) reportFixture {
	t.Helper()

	updated := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	reader := &stubConfigReader{
		config: &models.ActiveConfig{Year: 2026, PeriodID: "p1", PeriodName: "Primer Periodo", UpdatedAt: updated},
		active: &models.SchoolYear{Year: 2026, Status: models.YearStatusActive, UpdatedAt: updated},
	}
	configSvc := NewActiveConfigService(reader, NewCacheService(newMemoryCacheRepo(), nil, time.Minute, zap.NewNop(), true), time.Minute, zap.NewNop())

	grades := &stubGradeAggregates{averages: map[string]*float64{}, remarks: map[string]string{}}
	aggregation := NewAggregationService(grades, &stubAbsenceCounter{}, zap.NewNop())

	repo := newStubReportCardRepo()
	repo.periodNames["p1"] = "Primer Periodo"
	repo.periodNames["p2"] = "Segundo Periodo"
	renderer := &stubRenderer{}
	pairs := &stubYearPairLister{pairs: []models.YearPeriodDetail{
		{
			YearPeriod: models.YearPeriod{Year: 2026, PeriodID: "p1", StartMonthDay: "02-01", EndMonthDay: "04-15"},
			PeriodName: "Primer Periodo",
		},
		{
			YearPeriod: models.YearPeriod{Year: 2026, PeriodID: "p2", StartMonthDay: "04-16", EndMonthDay: "06-30"},
			PeriodName: "Segundo Periodo",
		},
	}}
	assignments := &stubAssignmentLister{assignments: []models.SubjectAssignmentDetail{
		{
			SubjectAssignment: models.SubjectAssignment{ID: "as1", SubjectID: "sub1", CourseID: "c1", Year: 2026, Status: models.AssignmentStatusActive},
			SubjectName:       "Matemáticas",
		},
	}}
	enrollments := &stubCourseLister{enrollments: []models.Enrollment{
		{ID: "en1", FirstName: "Ana", LastName: "Amariles", CourseID: "c1", Year: 2026, Status: models.EnrollmentStatusActive},
		{ID: "en2", FirstName: "Bruno", LastName: "Benitez", CourseID: "c1", Year: 2026, Status: models.EnrollmentStatusActive},
	}}

	service := NewReportCardService(repo, enrollments, assignments, pairs, &stubScaleProvider{}, aggregation, configSvc, renderer, nil, zap.NewNop(), 4)
	return reportFixture{repo: repo, renderer: renderer, grades: grades, service: service}
}

func TestBulkGenerateIsIdempotent(t *testing.T) {
	f := newReportFixture(t)

	result, err := f.service.BulkGenerate(context.Background(), "c1", adminClaims())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Existing)
	assert.Equal(t, 2, result.Materialized)
	assert.Equal(t, 2, result.CourseStudents)

	// A second run reuses every row.
	result, err = f.service.BulkGenerate(context.Background(), "c1", adminClaims())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 2, result.Existing)
	assert.Len(t, f.repo.cards, 2)
}

func TestListCreatesMissingAndMaterializes(t *testing.T) {
	f := newReportFixture(t)

	// Nothing generated yet. Listing a course/period pair backfills the
	// rows for the enrolled students and refreshes each returned card.
	filter := models.ReportCardFilter{CourseID: "c1", PeriodID: "p1", Page: 1, PageSize: 20}
	cards, total, err := f.service.List(context.Background(), filter, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, cards, 2)
	require.Len(t, f.repo.cards, 2)

	for _, card := range cards {
		_, ok := f.repo.documents[card.ID]
		assert.True(t, ok, "card %s should carry a materialized document", card.ID)
	}

	// A second listing reuses the existing rows.
	_, total, err = f.service.List(context.Background(), filter, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, f.repo.cards, 2)
}

func TestViewMaterializesDocument(t *testing.T) {
	f := newReportFixture(t)

	_, err := f.service.BulkGenerate(context.Background(), "c1", adminClaims())
	require.NoError(t, err)

	windowStart := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	f.grades.averages[windowKey("en1", windowStart)] = ptrFloat(4.6)

	card, err := f.service.View(context.Background(), "rc-en1-p1", adminClaims())
	require.NoError(t, err)
	subject, ok := card.Document["sub1"]
	require.True(t, ok)
	assert.Equal(t, 4.6, *subject.Score)
	assert.Equal(t, models.TierSuperior, subject.Tier)
	assert.Nil(t, subject.Final)
}

func TestDownloadPDFNamesFile(t *testing.T) {
	f := newReportFixture(t)

	_, err := f.service.BulkGenerate(context.Background(), "c1", adminClaims())
	require.NoError(t, err)

	payload, filename, err := f.service.DownloadPDF(context.Background(), "rc-en1-p1", adminClaims())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), payload)
	assert.Equal(t, "boletin_Ana Amariles_Primer Periodo.pdf", filename)
	require.Len(t, f.renderer.rendered, 1)
	assert.Equal(t, 1, f.renderer.rendered[0].PeriodIndex)
}

func TestDownloadCourseArchiveRanksStudents(t *testing.T) {
	f := newReportFixture(t)

	_, err := f.service.BulkGenerate(context.Background(), "c1", adminClaims())
	require.NoError(t, err)

	windowStart := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	f.grades.averages[windowKey("en1", windowStart)] = ptrFloat(3.0)
	f.grades.averages[windowKey("en2", windowStart)] = ptrFloat(4.5)

	payload, filename, err := f.service.DownloadCourseArchive(context.Background(), "c1", "p1", adminClaims())
	require.NoError(t, err)
	assert.Equal(t, []byte("PK"), payload)
	assert.Contains(t, filename, "boletines_")
	require.Len(t, f.renderer.archived, 1)

	ranks := make(map[string]int)
	for _, data := range f.renderer.archived[0] {
		ranks[data.StudentName] = data.Rank
	}
	assert.Equal(t, 1, ranks["Bruno Benitez"])
	assert.Equal(t, 2, ranks["Ana Amariles"])
}

func TestCourseStanding(t *testing.T) {
	f := newReportFixture(t)

	_, err := f.service.BulkGenerate(context.Background(), "c1", adminClaims())
	require.NoError(t, err)

	windowStart := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	f.grades.averages[windowKey("en2", windowStart)] = ptrFloat(4.0)

	rows, err := f.service.CourseStanding(context.Background(), "c1", "p1", adminClaims())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "en2", rows[0].EnrollmentID)
	// The ungraded student still appears, ranked last.
	assert.Equal(t, "en1", rows[1].EnrollmentID)
	assert.Nil(t, rows[1].Average)
}
