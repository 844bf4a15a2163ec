package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edusonrisas/academia-api/internal/models"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
)

type attendanceRepo interface {
	Upsert(ctx context.Context, record *models.Attendance) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error)
	SummaryInWindow(ctx context.Context, enrollmentID string, start, end time.Time) (*models.AttendanceSummary, error)
}

// UpsertAttendanceRequest is the payload for recording attendance.
type UpsertAttendanceRequest struct {
	EnrollmentID string  `json:"enrollment_id" validate:"required"`
	AssignmentID string  `json:"assignment_id" validate:"required"`
	Date         string  `json:"date" validate:"required,datetime=2006-01-02"`
	Status       string  `json:"status" validate:"required"`
	Notes        *string `json:"notes" validate:"omitempty,max=500"`
}

// AttendanceService manages attendance records with the same fencing as
// grades: the date must sit inside the active window and never in the
// future, and teachers only write to their own assignments.
type AttendanceService struct {
	records     attendanceRepo
	assignments assignmentReader
	enrollments gradeEnrollmentReader
	windows     *PeriodWindowService
	config      *ActiveConfigService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(records attendanceRepo, assignments assignmentReader, enrollments gradeEnrollmentReader, windows *PeriodWindowService, config *ActiveConfigService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		records:     records,
		assignments: assignments,
		enrollments: enrollments,
		windows:     windows,
		config:      config,
		validator:   validate,
		logger:      logger,
	}
}

// Upsert records or corrects one attendance record.
func (s *AttendanceService) Upsert(ctx context.Context, req UpsertAttendanceRequest, actor *models.JWTClaims) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	status := models.AttendanceStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be PRESENT, ABSENT, EXCUSED or LATE")
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
	if err := s.windows.ValidateRecordDate(window, date); err != nil {
		return nil, err
	}

	record := &models.Attendance{
		EnrollmentID: req.EnrollmentID,
		AssignmentID: req.AssignmentID,
		Date:         date,
		Status:       status,
		Notes:        req.Notes,
		CreatedBy:    actorID(actor),
	}
	if actor != nil {
		record.UpdatedBy = &actor.UserID
	}
	if err := s.records.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, "ATTENDANCE_SAVE_FAILED", 500, "failed to save attendance")
	}
	return record, nil
}

// List returns attendance records matching the filter.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	records, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, "ATTENDANCE_LIST_FAILED", 500, "failed to list attendance")
	}
	return records, total, nil
}

// Summary aggregates a student's attendance inside the active window.
func (s *AttendanceService) Summary(ctx context.Context, enrollmentID string) (*models.AttendanceSummary, error) {
	window, err := s.windows.ActiveWindow(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := s.records.SummaryInWindow(ctx, enrollmentID, window.Start, window.End)
	if err != nil {
		return nil, appErrors.Wrap(err, "ATTENDANCE_SUMMARY_FAILED", 500, "failed to summarise attendance")
	}
	return summary, nil
}
