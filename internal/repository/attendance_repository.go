package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edusonrisas/academia-api/internal/models"
)

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository instantiates an attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert inserts an attendance record or updates the existing one for the
// same enrollment, assignment and date.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `
		INSERT INTO attendance (id, enrollment_id, assignment_id, date, status, notes, created_by, updated_by, created_at, updated_at)
		VALUES (:id, :enrollment_id, :assignment_id, :date, :status, :notes, :created_by, :updated_by, :created_at, :updated_at)
		ON CONFLICT (enrollment_id, assignment_id, date)
		DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// List returns attendance records matching the filter, newest date first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	base := "FROM attendance WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.AssignmentID != "" {
		conditions = append(conditions, fmt.Sprintf("assignment_id = $%d", len(args)+1))
		args = append(args, filter.AssignmentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, enrollment_id, assignment_id, date, status, notes, created_by, updated_by, created_at, updated_at %s ORDER BY date DESC LIMIT %d OFFSET %d", base, size, offset)

	var records []models.Attendance
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return records, total, nil
}

// AbsenceCountInWindow counts ABSENT records for one enrollment and
// assignment inside the window, inclusive.
func (r *AttendanceRepository) AbsenceCountInWindow(ctx context.Context, enrollmentID, assignmentID string, start, end time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance WHERE enrollment_id = $1 AND assignment_id = $2 AND status = $3 AND date BETWEEN $4 AND $5`
	var count int
	if err := r.db.GetContext(ctx, &count, query, enrollmentID, assignmentID, models.AttendanceStatusAbsent, start, end); err != nil {
		return 0, fmt.Errorf("count absences in window: %w", err)
	}
	return count, nil
}

// SummaryInWindow aggregates attendance counts for one enrollment inside the
// window across all assignments.
func (r *AttendanceRepository) SummaryInWindow(ctx context.Context, enrollmentID string, start, end time.Time) (*models.AttendanceSummary, error) {
	const query = `
		SELECT
			COUNT(*) FILTER (WHERE status = 'PRESENT') AS present,
			COUNT(*) FILTER (WHERE status = 'ABSENT') AS absent,
			COUNT(*) FILTER (WHERE status = 'EXCUSED') AS excused,
			COUNT(*) FILTER (WHERE status = 'LATE') AS late,
			COUNT(*) AS total
		FROM attendance
		WHERE enrollment_id = $1 AND date BETWEEN $2 AND $3`
	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, enrollmentID, start, end); err != nil {
		return nil, fmt.Errorf("attendance summary in window: %w", err)
	}
	if summary.Total > 0 {
		summary.Percent = float64(summary.Present+summary.Late) / float64(summary.Total) * 100
	}
	return &summary, nil
}

// Delete removes an attendance record permanently.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return nil
}
