package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/edusonrisas/academia-api/internal/models"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
	"github.com/edusonrisas/academia-api/pkg/export"
)

type reportCardRepo interface {
	FindByID(ctx context.Context, id string) (*models.ReportCardDetail, error)
	List(ctx context.Context, filter models.ReportCardFilter) ([]models.ReportCardDetail, int, error)
	ListByCoursePeriod(ctx context.Context, courseID, periodID string) ([]models.ReportCardDetail, error)
	CreateMissing(ctx context.Context, enrollments []models.Enrollment, periodID string, generatedBy string) (int, error)
	UpdateDocument(ctx context.Context, id string, document models.ReportCardDocument, generatedBy string) error
	UpdateComments(ctx context.Context, id string, comments *string) error
	SoftDelete(ctx context.Context, id, deletedBy string) error
}

type reportEnrollmentReader interface {
	ListByCourse(ctx context.Context, courseID string, year int) ([]models.Enrollment, error)
}

type reportAssignmentReader interface {
	ListByCourse(ctx context.Context, courseID string, year int) ([]models.SubjectAssignmentDetail, error)
}

type reportPairReader interface {
	ListYearPeriods(ctx context.Context, year int) ([]models.YearPeriodDetail, error)
}

type reportScaleProvider interface {
	GetOrCreate(ctx context.Context, year int) (*models.GradingScale, error)
}

type reportCardRenderer interface {
	Render(data export.ReportCardData) ([]byte, error)
	RenderArchive(cards []export.ReportCardData) ([]byte, error)
}

// BulkGenerateResult summarises a bulk generation run.
type BulkGenerateResult struct {
	Created        int `json:"created"`
	Existing       int `json:"existing"`
	Materialized   int `json:"materialized"`
	CourseStudents int `json:"course_students"`
}

// ReportCardService materializes report card documents and serves their
// views and downloads. Documents are always recomputed before being shown,
// so a stored document is never newer than the grades behind it.
type ReportCardService struct {
	cards          reportCardRepo
	enrollments    reportEnrollmentReader
	assignments    reportAssignmentReader
	pairs          reportPairReader
	scales         reportScaleProvider
	aggregation    *AggregationService
	config         *ActiveConfigService
	renderer       reportCardRenderer
	metrics        *MetricsService
	logger         *zap.Logger
	periodsPerYear int
}

// NewReportCardService constructs a ReportCardService.
func NewReportCardService(
	cards reportCardRepo,
	enrollments reportEnrollmentReader,
	assignments reportAssignmentReader,
	pairs reportPairReader,
	scales reportScaleProvider,
	aggregation *AggregationService,
	config *ActiveConfigService,
	renderer reportCardRenderer,
	metrics *MetricsService,
	logger *zap.Logger,
	periodsPerYear int,
) *ReportCardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if periodsPerYear <= 0 {
		periodsPerYear = 4
	}
	return &ReportCardService{
		cards:          cards,
		enrollments:    enrollments,
		assignments:    assignments,
		pairs:          pairs,
		scales:         scales,
		aggregation:    aggregation,
		config:         config,
		renderer:       renderer,
		metrics:        metrics,
		logger:         logger,
		periodsPerYear: periodsPerYear,
	}
}

// List returns report cards matching the filter. When the filter names a
// course and period the missing rows for that roster are created first, and
// every card on the returned page is recomputed before being shown.
func (s *ReportCardService) List(ctx context.Context, filter models.ReportCardFilter, actor *models.JWTClaims) ([]models.ReportCardDetail, int, error) {
	if filter.CourseID != "" && filter.PeriodID != "" {
		if err := s.createMissingForCourse(ctx, filter, actor); err != nil {
			s.logger.Warn("lazy report card creation failed",
				zap.String("course_id", filter.CourseID), zap.Error(err))
		}
	}

	cards, total, err := s.cards.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, "REPORT_LIST_FAILED", 500, "failed to list report cards")
	}
	for i := range cards {
		if err := s.materialize(ctx, &cards[i], actorID(actor)); err != nil {
			s.logger.Warn("report card materialization failed",
				zap.String("report_card_id", cards[i].ID), zap.Error(err))
		}
	}
	return cards, total, nil
}

// createMissingForCourse backfills report card rows for every active
// enrollment of the filtered course before a listing.
func (s *ReportCardService) createMissingForCourse(ctx context.Context, filter models.ReportCardFilter, actor *models.JWTClaims) error {
	year := filter.Year
	if year == 0 {
		cfg, err := s.config.Resolve(ctx)
		if err != nil {
			return err
		}
		if cfg == nil {
			return nil
		}
		year = cfg.Year
	}
	enrollments, err := s.enrollments.ListByCourse(ctx, filter.CourseID, year)
	if err != nil {
		return err
	}
	if len(enrollments) == 0 {
		return nil
	}
	_, err = s.cards.CreateMissing(ctx, enrollments, filter.PeriodID, actorID(actor))
	return err
}

// View loads a report card and recomputes its document first.
func (s *ReportCardService) View(ctx context.Context, id string, actor *models.JWTClaims) (*models.ReportCardDetail, error) {
	card, err := s.findCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.materialize(ctx, card, actorID(actor)); err != nil {
		return nil, err
	}
	return card, nil
}

// BulkGenerate creates the missing report cards for a course in the active
// period, then materializes every card of the course. Existing rows are
// reused, so running it twice is safe.
func (s *ReportCardService) BulkGenerate(ctx context.Context, courseID string, actor *models.JWTClaims) (*BulkGenerateResult, error) {
	cfg, err := s.config.Require(ctx)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.enrollments.ListByCourse(ctx, courseID, cfg.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, "REPORT_GENERATE_FAILED", 500, "failed to load course enrollments")
	}
	if len(enrollments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course has no active enrollments")
	}

	created, err := s.cards.CreateMissing(ctx, enrollments, cfg.PeriodID, actorID(actor))
	if err != nil {
		return nil, appErrors.Wrap(err, "REPORT_GENERATE_FAILED", 500, "failed to create report cards")
	}

	cards, err := s.cards.ListByCoursePeriod(ctx, courseID, cfg.PeriodID)
	if err != nil {
		return nil, appErrors.Wrap(err, "REPORT_GENERATE_FAILED", 500, "failed to load course report cards")
	}
	materialized := 0
	for i := range cards {
		if err := s.materialize(ctx, &cards[i], actorID(actor)); err != nil {
			s.logger.Warn("report card materialization failed",
				zap.String("report_card_id", cards[i].ID), zap.Error(err))
			continue
		}
		materialized++
	}

	s.logger.Info("bulk report card generation finished",
		zap.String("course_id", courseID),
		zap.Int("created", created),
		zap.Int("materialized", materialized))
	return &BulkGenerateResult{
		Created:        created,
		Existing:       len(cards) - created,
		Materialized:   materialized,
		CourseStudents: len(enrollments),
	}, nil
}

// DownloadPDF recomputes a report card and renders it as a PDF.
func (s *ReportCardService) DownloadPDF(ctx context.Context, id string, actor *models.JWTClaims) ([]byte, string, error) {
	card, err := s.findCard(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := s.materialize(ctx, card, actorID(actor)); err != nil {
		return nil, "", err
	}

	data, err := s.renderData(ctx, card, actor)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.renderer.Render(*data)
	if err != nil {
		return nil, "", appErrors.Wrap(err, "REPORT_RENDER_FAILED", 500, "failed to render report card")
	}
	filename := fmt.Sprintf("boletin_%s_%s.pdf", card.StudentName, card.PeriodName)
	return payload, filename, nil
}

// DownloadCourseArchive recomputes every report card of a course and period
// and bundles the PDFs into one zip archive.
func (s *ReportCardService) DownloadCourseArchive(ctx context.Context, courseID, periodID string, actor *models.JWTClaims) ([]byte, string, error) {
	cards, err := s.cards.ListByCoursePeriod(ctx, courseID, periodID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, "REPORT_ARCHIVE_FAILED", 500, "failed to load course report cards")
	}
	if len(cards) == 0 {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "no report cards for this course and period")
	}

	for i := range cards {
		if err := s.materialize(ctx, &cards[i], actorID(actor)); err != nil {
			return nil, "", err
		}
	}

	standing := s.aggregation.CourseStanding(cards)
	ranks := make(map[string]int, len(standing))
	for _, row := range standing {
		ranks[row.EnrollmentID] = row.Rank
	}

	scale, err := s.scales.GetOrCreate(ctx, cards[0].Year)
	if err != nil {
		return nil, "", appErrors.Wrap(err, "REPORT_ARCHIVE_FAILED", 500, "failed to load grading scale")
	}

	datas := make([]export.ReportCardData, 0, len(cards))
	for i := range cards {
		data, err := s.buildRenderData(ctx, &cards[i], ranks[cards[i].EnrollmentID], scale, actor)
		if err != nil {
			return nil, "", err
		}
		datas = append(datas, *data)
	}

	payload, err := s.renderer.RenderArchive(datas)
	if err != nil {
		return nil, "", appErrors.Wrap(err, "REPORT_ARCHIVE_FAILED", 500, "failed to render archive")
	}
	filename := fmt.Sprintf("boletines_%s_%s.zip", cards[0].CourseName, cards[0].PeriodName)
	return payload, filename, nil
}

// CourseStanding recomputes the cards of a course and returns the ranking.
func (s *ReportCardService) CourseStanding(ctx context.Context, courseID, periodID string, actor *models.JWTClaims) ([]models.StandingRow, error) {
	cards, err := s.cards.ListByCoursePeriod(ctx, courseID, periodID)
	if err != nil {
		return nil, appErrors.Wrap(err, "STANDING_FAILED", 500, "failed to load course report cards")
	}
	for i := range cards {
		if err := s.materialize(ctx, &cards[i], actorID(actor)); err != nil {
			return nil, err
		}
	}
	return s.aggregation.CourseStanding(cards), nil
}

// UpdateComments sets the free-form comments on a report card.
func (s *ReportCardService) UpdateComments(ctx context.Context, id string, comments *string) error {
	if _, err := s.findCard(ctx, id); err != nil {
		return err
	}
	if err := s.cards.UpdateComments(ctx, id, comments); err != nil {
		return appErrors.Wrap(err, "REPORT_UPDATE_FAILED", 500, "failed to update comments")
	}
	return nil
}

// Delete soft-deletes a report card, keeping the document recoverable.
func (s *ReportCardService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if _, err := s.findCard(ctx, id); err != nil {
		return err
	}
	if err := s.cards.SoftDelete(ctx, id, actorID(actor)); err != nil {
		return appErrors.Wrap(err, "REPORT_DELETE_FAILED", 500, "failed to delete report card")
	}
	return nil
}

func (s *ReportCardService) findCard(ctx context.Context, id string) (*models.ReportCardDetail, error) {
	card, err := s.cards.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report card not found")
		}
		return nil, appErrors.Wrap(err, "REPORT_LOAD_FAILED", 500, "failed to load report card")
	}
	return card, nil
}

// materialize recomputes the card's document from grades, attendance and the
// grading scale, then persists it in place.
func (s *ReportCardService) materialize(ctx context.Context, card *models.ReportCardDetail, generatedBy string) error {
	windows, currentIndex, err := s.orderedWindows(ctx, card.Year, card.PeriodID)
	if err != nil {
		return err
	}

	scale, err := s.scales.GetOrCreate(ctx, card.Year)
	if err != nil {
		return appErrors.Wrap(err, "REPORT_BUILD_FAILED", 500, "failed to load grading scale")
	}

	assignments, err := s.assignments.ListByCourse(ctx, card.CourseID, card.Year)
	if err != nil {
		return appErrors.Wrap(err, "REPORT_BUILD_FAILED", 500, "failed to load course assignments")
	}

	document := make(models.ReportCardDocument, len(assignments))
	for _, assignment := range assignments {
		report, err := s.aggregation.BuildSubjectReport(ctx, card.EnrollmentID, assignment, windows, currentIndex, scale, s.periodsPerYear)
		if err != nil {
			return err
		}
		document[assignment.SubjectID] = report
	}

	if err := s.cards.UpdateDocument(ctx, card.ID, document, generatedBy); err != nil {
		return appErrors.Wrap(err, "REPORT_BUILD_FAILED", 500, "failed to persist report card document")
	}
	card.Document = document
	if s.metrics != nil {
		s.metrics.RecordReportCardBuilt()
	}
	return nil
}

// orderedWindows resolves every window of the year in calendar order and
// locates the card's period inside that order.
func (s *ReportCardService) orderedWindows(ctx context.Context, year int, periodID string) ([]models.PeriodWindow, int, error) {
	pairs, err := s.pairs.ListYearPeriods(ctx, year)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, "REPORT_BUILD_FAILED", 500, "failed to load year periods")
	}

	windows := make([]models.PeriodWindow, 0, len(pairs))
	currentIndex := 0
	for i, pair := range pairs {
		window, err := buildWindow(&pair.YearPeriod, pair.PeriodName)
		if err != nil {
			return nil, 0, err
		}
		windows = append(windows, *window)
		if pair.PeriodID == periodID {
			currentIndex = i + 1
		}
	}
	if currentIndex == 0 {
		return nil, 0, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("period %s is not configured for year %d", periodID, year))
	}
	return windows, currentIndex, nil
}

func (s *ReportCardService) renderData(ctx context.Context, card *models.ReportCardDetail, actor *models.JWTClaims) (*export.ReportCardData, error) {
	cards, err := s.cards.ListByCoursePeriod(ctx, card.CourseID, card.PeriodID)
	if err != nil {
		return nil, appErrors.Wrap(err, "REPORT_RENDER_FAILED", 500, "failed to load course report cards")
	}
	standing := s.aggregation.CourseStanding(cards)
	rank := 0
	for _, row := range standing {
		if row.EnrollmentID == card.EnrollmentID {
			rank = row.Rank
			break
		}
	}

	scale, err := s.scales.GetOrCreate(ctx, card.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, "REPORT_RENDER_FAILED", 500, "failed to load grading scale")
	}
	return s.buildRenderData(ctx, card, rank, scale, actor)
}

func (s *ReportCardService) buildRenderData(ctx context.Context, card *models.ReportCardDetail, rank int, scale *models.GradingScale, actor *models.JWTClaims) (*export.ReportCardData, error) {
	assignments, err := s.assignments.ListByCourse(ctx, card.CourseID, card.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, "REPORT_RENDER_FAILED", 500, "failed to load course assignments")
	}
	names := make(map[string]string, len(assignments))
	for _, assignment := range assignments {
		names[assignment.SubjectID] = assignment.SubjectName
	}

	_, currentIndex, err := s.orderedWindows(ctx, card.Year, card.PeriodID)
	if err != nil {
		return nil, err
	}

	average := card.OverallAverage()
	comments := ""
	if card.Comments != nil {
		comments = *card.Comments
	}
	generatedBy := actorID(actor)
	if actor != nil && actor.FullName != "" {
		generatedBy = actor.FullName
	}

	return &export.ReportCardData{
		StudentName:  card.StudentName,
		CourseName:   card.CourseName,
		PeriodName:   card.PeriodName,
		PeriodIndex:  currentIndex,
		Year:         card.Year,
		Document:     card.Document,
		SubjectNames: names,
		Comments:     comments,
		GeneratedBy:  generatedBy,
		Rank:         rank,
		Average:      average,
		Tier:         scale.TierFor(average),
		Verdict:      scale.VerdictFor(card.FinalAverage()),
	}, nil
}

func actorID(actor *models.JWTClaims) string {
	if actor == nil {
		return "system"
	}
	return actor.UserID
}
