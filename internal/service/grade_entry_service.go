package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edusonrisas/academia-api/internal/models"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
)

type gradeEntryRepo interface {
	Upsert(ctx context.Context, entry *models.GradeEntry) error
	List(ctx context.Context, filter models.GradeEntryFilter) ([]models.GradeEntry, int, error)
	FindByID(ctx context.Context, id string) (*models.GradeEntry, error)
	Delete(ctx context.Context, id string) error
}

type assignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.SubjectAssignment, error)
}

type gradeEnrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

// UpsertGradeEntryRequest is the payload for recording a grade entry.
type UpsertGradeEntryRequest struct {
	EnrollmentID string   `json:"enrollment_id" validate:"required"`
	AssignmentID string   `json:"assignment_id" validate:"required"`
	Date         string   `json:"date" validate:"required,datetime=2006-01-02"`
	Score        *float64 `json:"score" validate:"omitempty,gte=0,lte=5"`
	Remark       *string  `json:"remark" validate:"omitempty,max=500"`
}

// GradeEntryService manages grade entries. Writes are fenced to the active
// period window and to teachers who own the assignment.
type GradeEntryService struct {
	entries     gradeEntryRepo
	assignments assignmentReader
	enrollments gradeEnrollmentReader
	windows     *PeriodWindowService
	config      *ActiveConfigService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeEntryService constructs a GradeEntryService.
func NewGradeEntryService(entries gradeEntryRepo, assignments assignmentReader, enrollments gradeEnrollmentReader, windows *PeriodWindowService, config *ActiveConfigService, validate *validator.Validate, logger *zap.Logger) *GradeEntryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeEntryService{
		entries:     entries,
		assignments: assignments,
		enrollments: enrollments,
		windows:     windows,
		config:      config,
		validator:   validate,
		logger:      logger,
	}
}

// Upsert records or updates a grade entry. The date must fall inside the
// active period window; a future date is fine as long as it stays in the
// window. A nil score with a remark is accepted as an observation-only entry.
func (s *GradeEntryService) Upsert(ctx context.Context, req UpsertGradeEntryRequest, actor *models.JWTClaims) (*models.GradeEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade entry payload")
	}
	if req.Score == nil && (req.Remark == nil || *req.Remark == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entry needs a score or a remark")
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	if err != nil {
		return nil, appErrors.ErrInvalidDate
	}

	assignment, enrollment, err := resolveAssignmentPair(ctx, s.assignments, s.enrollments, req.AssignmentID, req.EnrollmentID, actor)
	if err != nil {
		return nil, err
	}

	cfg, err := s.config.Require(ctx)
	if err != nil {
		return nil, err
	}
	if enrollment.Year != cfg.Year || assignment.Year != cfg.Year {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment and assignment must belong to the active year")
	}

	window, err := s.windows.ActiveWindow(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.windows.ValidateInWindow(window, date); err != nil {
		return nil, err
	}

	entry := &models.GradeEntry{
		EnrollmentID: req.EnrollmentID,
		AssignmentID: req.AssignmentID,
		PeriodID:     cfg.PeriodID,
		Date:         date,
		Score:        req.Score,
		Remark:       req.Remark,
		CreatedBy:    actorID(actor),
	}
	if actor != nil {
		entry.UpdatedBy = &actor.UserID
	}
	if err := s.entries.Upsert(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, "GRADE_SAVE_FAILED", 500, "failed to save grade entry")
	}
	return entry, nil
}

// List returns grade entries for the filter. Teachers only see entries of
// assignments they own.
func (s *GradeEntryService) List(ctx context.Context, filter models.GradeEntryFilter, actor *models.JWTClaims) ([]models.GradeEntry, int, error) {
	if actor != nil && actor.Role == models.RoleTeacher && filter.AssignmentID != "" {
		if _, _, err := resolveAssignmentPair(ctx, s.assignments, s.enrollments, filter.AssignmentID, "", actor); err != nil {
			return nil, 0, err
		}
	}
	entries, total, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, "GRADE_LIST_FAILED", 500, "failed to list grade entries")
	}
	return entries, total, nil
}

// Delete removes a grade entry. Teachers may only delete entries on their
// own assignments.
func (s *GradeEntryService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	entry, err := s.entries.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grade entry not found")
		}
		return appErrors.Wrap(err, "GRADE_DELETE_FAILED", 500, "failed to load grade entry")
	}
	if _, _, err := resolveAssignmentPair(ctx, s.assignments, s.enrollments, entry.AssignmentID, "", actor); err != nil {
		return err
	}
	if err := s.entries.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, "GRADE_DELETE_FAILED", 500, "failed to delete grade entry")
	}
	return nil
}

// resolveAssignmentPair loads the assignment (and optionally the enrollment)
// and enforces that teachers only touch assignments they own.
func resolveAssignmentPair(ctx context.Context, assignments assignmentReader, enrollments gradeEnrollmentReader, assignmentID, enrollmentID string, actor *models.JWTClaims) (*models.SubjectAssignment, *models.Enrollment, error) {
	assignment, err := assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, nil, appErrors.Wrap(err, "GRADE_SAVE_FAILED", 500, "failed to load assignment")
	}
	if assignment.Deleted || assignment.Status != models.AssignmentStatusActive {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, "assignment is not active")
	}
	if actor != nil && actor.Role == models.RoleTeacher && assignment.TeacherID != actor.UserID {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another teacher")
	}

	if enrollmentID == "" {
		return assignment, nil, nil
	}

	enrollment, err := enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, nil, appErrors.Wrap(err, "GRADE_SAVE_FAILED", 500, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, "enrollment is not active")
	}
	if enrollment.CourseID != assignment.CourseID {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, "enrollment does not belong to the assignment's course")
	}
	return assignment, enrollment, nil
}
