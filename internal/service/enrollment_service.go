package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edusonrisas/academia-api/internal/models"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
)

type enrollmentRepo interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ExistsByDocumentAndYear(ctx context.Context, document string, year int) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Update(ctx context.Context, enrollment *models.Enrollment) error
	ReassignCourse(ctx context.Context, enrollmentID, newCourseID string) error
}

type courseReader interface {
	FindCourse(ctx context.Context, id string) (*models.Course, error)
}

type enrollmentAuditLogger interface {
	InsertAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// CreateEnrollmentRequest is the payload for registering a student.
type CreateEnrollmentRequest struct {
	Document  string `json:"document" validate:"required,min=4,max=20"`
	FirstName string `json:"first_name" validate:"required,min=2,max=60"`
	LastName  string `json:"last_name" validate:"required,min=2,max=60"`
	CourseID  string `json:"course_id" validate:"required"`
}

// ReassignCourseRequest moves an enrollment to another course.
type ReassignCourseRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

// EnrollmentService manages student enrollments. Listings are cached per
// active year and invalidated through the matriculas pattern.
type EnrollmentService struct {
	enrollments enrollmentRepo
	courses     courseReader
	config      *ActiveConfigService
	cache       *CacheService
	audit       enrollmentAuditLogger
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(enrollments enrollmentRepo, courses courseReader, config *ActiveConfigService, cache *CacheService, audit enrollmentAuditLogger, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		courses:     courses,
		config:      config,
		cache:       cache,
		audit:       audit,
		validator:   validate,
		logger:      logger,
	}
}

type cachedEnrollmentPage struct {
	Items []models.Enrollment `json:"items"`
	Total int                 `json:"total"`
}

// List returns enrollments matching the filter. Unfiltered course pages of
// the active year come from cache when possible.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	cacheKey := ""
	if filter.Search == "" && filter.Status == "" {
		cacheKey = fmt.Sprintf("matriculas:%d:%s:%d:%d", filter.Year, filter.CourseID, filter.Page, filter.PageSize)
		var page cachedEnrollmentPage
		if hit, _ := s.cache.Get(ctx, cacheKey, &page); hit {
			return page.Items, page.Total, nil
		}
	}

	items, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, "ENROLLMENT_LIST_FAILED", 500, "failed to list enrollments")
	}

	if cacheKey != "" {
		_ = s.cache.Set(ctx, cacheKey, cachedEnrollmentPage{Items: items, Total: total}, 30*time.Minute)
	}
	return items, total, nil
}

// Get loads one enrollment.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, "ENROLLMENT_LOAD_FAILED", 500, "failed to load enrollment")
	}
	return enrollment, nil
}

// Create registers a student into a course for the active year. A student
// can hold at most one non-withdrawn enrollment per year.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	cfg, err := s.config.Require(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.courses.FindCourse(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, "ENROLLMENT_CREATE_FAILED", 500, "failed to load course")
	}

	exists, err := s.enrollments.ExistsByDocumentAndYear(ctx, req.Document, cfg.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, "ENROLLMENT_CREATE_FAILED", 500, "failed to check enrollment uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("document %s is already enrolled for %d", req.Document, cfg.Year))
	}

	enrollment := &models.Enrollment{
		Document:  req.Document,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		CourseID:  req.CourseID,
		Year:      cfg.Year,
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, "ENROLLMENT_CREATE_FAILED", 500, "failed to create enrollment")
	}

	_ = s.cache.Invalidate(ctx, EnrollmentCachePattern)
	s.logger.Info("enrollment created", zap.String("document", enrollment.Document), zap.Int("year", enrollment.Year))
	return enrollment, nil
}

// ReassignCourse moves a student to another course. The enrollment's report
// cards move with it in the same transaction so history stays consistent.
func (s *EnrollmentService) ReassignCourse(ctx context.Context, id string, req ReassignCourseRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reassign payload")
	}

	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only active enrollments can change course")
	}
	if enrollment.CourseID == req.CourseID {
		return enrollment, nil
	}

	if _, err := s.courses.FindCourse(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, "COURSE_REASSIGN_FAILED", 500, "failed to load course")
	}

	previousCourse := enrollment.CourseID
	if err := s.enrollments.ReassignCourse(ctx, id, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, "COURSE_REASSIGN_FAILED", 500, "failed to reassign course")
	}
	enrollment.CourseID = req.CourseID

	_ = s.cache.Invalidate(ctx, EnrollmentCachePattern)
	s.writeAudit(ctx, actor, id, previousCourse, req.CourseID)
	s.logger.Info("enrollment reassigned",
		zap.String("enrollment_id", id),
		zap.String("from_course", previousCourse),
		zap.String("to_course", req.CourseID))
	return enrollment, nil
}

// Withdraw marks an enrollment as withdrawn, freeing the document for a new
// enrollment in the same year.
func (s *EnrollmentService) Withdraw(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if enrollment.Status == models.EnrollmentStatusWithdrawn {
		return enrollment, nil
	}
	enrollment.Status = models.EnrollmentStatusWithdrawn
	if err := s.enrollments.Update(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, "ENROLLMENT_UPDATE_FAILED", 500, "failed to withdraw enrollment")
	}
	_ = s.cache.Invalidate(ctx, EnrollmentCachePattern)
	return enrollment, nil
}

func (s *EnrollmentService) writeAudit(ctx context.Context, actor *models.JWTClaims, enrollmentID, fromCourse, toCourse string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     models.AuditActionCourseReassign,
		Resource:   "enrollment",
		ResourceID: &enrollmentID,
		OldValues:  []byte(fmt.Sprintf(`{"course_id":%q}`, fromCourse)),
		NewValues:  []byte(fmt.Sprintf(`{"course_id":%q}`, toCourse)),
	}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if err := s.audit.InsertAuditLog(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", zap.Error(err))
	}
}
