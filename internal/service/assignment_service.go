package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edusonrisas/academia-api/internal/models"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
)

type assignmentRepo interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.SubjectAssignmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.SubjectAssignment, error)
	Create(ctx context.Context, assignment *models.SubjectAssignment) error
	UpdateTaughtHours(ctx context.Context, id string, hours int) error
	SoftDelete(ctx context.Context, id string) error
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
}

// CreateAssignmentRequest binds a teacher to a subject and course.
type CreateAssignmentRequest struct {
	TeacherID   string `json:"teacher_id" validate:"required"`
	SubjectID   string `json:"subject_id" validate:"required"`
	CourseID    string `json:"course_id" validate:"required"`
	TaughtHours *int   `json:"taught_hours" validate:"omitempty,gte=0,lte=60"`
}

// AssignmentService manages subject assignments. Listings for the active
// year are cached under the asignaciones pattern.
type AssignmentService struct {
	assignments assignmentRepo
	config      *ActiveConfigService
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(assignments assignmentRepo, config *ActiveConfigService, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		assignments: assignments,
		config:      config,
		cache:       cache,
		validator:   validate,
		logger:      logger,
	}
}

type cachedAssignmentPage struct {
	Items []models.SubjectAssignmentDetail `json:"items"`
	Total int                              `json:"total"`
}

// List returns assignments matching the filter, serving unsearched pages
// from cache when possible.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.SubjectAssignmentDetail, int, error) {
	cacheKey := fmt.Sprintf("asignaciones:%d:%s:%s:%s:%d:%d", filter.Year, filter.CourseID, filter.TeacherID, filter.SubjectID, filter.Page, filter.PageSize)
	var page cachedAssignmentPage
	if hit, _ := s.cache.Get(ctx, cacheKey, &page); hit {
		return page.Items, page.Total, nil
	}

	items, total, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, "ASSIGNMENT_LIST_FAILED", 500, "failed to list assignments")
	}
	_ = s.cache.Set(ctx, cacheKey, cachedAssignmentPage{Items: items, Total: total}, 30*time.Minute)
	return items, total, nil
}

// Create binds a teacher to a subject and course for the active year.
func (s *AssignmentService) Create(ctx context.Context, req CreateAssignmentRequest, actor *models.JWTClaims) (*models.SubjectAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	cfg, err := s.config.Require(ctx)
	if err != nil {
		return nil, err
	}

	assignment := &models.SubjectAssignment{
		TeacherID:   req.TeacherID,
		SubjectID:   req.SubjectID,
		CourseID:    req.CourseID,
		Year:        cfg.Year,
		TaughtHours: req.TaughtHours,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, "ASSIGNMENT_CREATE_FAILED", 500, "failed to create assignment")
	}

	_ = s.cache.Invalidate(ctx, AssignmentCachePattern)
	return assignment, nil
}

// UpdateTaughtHours sets the hours shown on report cards.
func (s *AssignmentService) UpdateTaughtHours(ctx context.Context, id string, hours int) error {
	if hours < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "taught hours cannot be negative")
	}
	if err := s.assignments.UpdateTaughtHours(ctx, id, hours); err != nil {
		return appErrors.Wrap(err, "ASSIGNMENT_UPDATE_FAILED", 500, "failed to update taught hours")
	}
	_ = s.cache.Invalidate(ctx, AssignmentCachePattern)
	return nil
}

// Delete soft-deletes an assignment.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	if err := s.assignments.SoftDelete(ctx, id); err != nil {
		return appErrors.Wrap(err, "ASSIGNMENT_DELETE_FAILED", 500, "failed to delete assignment")
	}
	_ = s.cache.Invalidate(ctx, AssignmentCachePattern)
	return nil
}

// ListSubjects returns every subject.
func (s *AssignmentService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	subjects, err := s.assignments.ListSubjects(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, "SUBJECT_LIST_FAILED", 500, "failed to list subjects")
	}
	return subjects, nil
}

// ListCourses returns every course.
func (s *AssignmentService) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := s.assignments.ListCourses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, "COURSE_LIST_FAILED", 500, "failed to list courses")
	}
	return courses, nil
}
