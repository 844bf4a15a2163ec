package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edusonrisas/academia-api/internal/models"
)

// GradeEntryRepository handles persistence for daily grade entries.
type GradeEntryRepository struct {
	db *sqlx.DB
}

// NewGradeEntryRepository instantiates a grade entry repository.
func NewGradeEntryRepository(db *sqlx.DB) *GradeEntryRepository {
	return &GradeEntryRepository{db: db}
}

// Upsert inserts a grade entry or updates the existing one for the same
// enrollment, assignment and date.
func (r *GradeEntryRepository) Upsert(ctx context.Context, entry *models.GradeEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	const query = `
		INSERT INTO grade_entries (id, enrollment_id, assignment_id, period_id, date, score, remark, created_by, updated_by, created_at, updated_at)
		VALUES (:id, :enrollment_id, :assignment_id, :period_id, :date, :score, :remark, :created_by, :updated_by, :created_at, :updated_at)
		ON CONFLICT (enrollment_id, assignment_id, date)
		DO UPDATE SET score = EXCLUDED.score, remark = EXCLUDED.remark, period_id = EXCLUDED.period_id, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("upsert grade entry: %w", err)
	}
	return nil
}

// List returns grade entries matching the filter, newest date first.
func (r *GradeEntryRepository) List(ctx context.Context, filter models.GradeEntryFilter) ([]models.GradeEntry, int, error) {
	base := "FROM grade_entries WHERE 1=1"
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
	if filter.PeriodID != "" {
		conditions = append(conditions, fmt.Sprintf("period_id = $%d", len(args)+1))
		args = append(args, filter.PeriodID)
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

	query := fmt.Sprintf("SELECT id, enrollment_id, assignment_id, period_id, date, score, remark, created_by, updated_by, created_at, updated_at %s ORDER BY date DESC LIMIT %d OFFSET %d", base, size, offset)

	var entries []models.GradeEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list grade entries: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count grade entries: %w", err)
	}
	return entries, total, nil
}

// FindByID loads a grade entry by identifier.
func (r *GradeEntryRepository) FindByID(ctx context.Context, id string) (*models.GradeEntry, error) {
	const query = `SELECT id, enrollment_id, assignment_id, period_id, date, score, remark, created_by, updated_by, created_at, updated_at FROM grade_entries WHERE id = $1`
	var entry models.GradeEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Delete removes a grade entry permanently.
func (r *GradeEntryRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM grade_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete grade entry: %w", err)
	}
	return nil
}

// AverageInWindow returns the mean of scored entries for one enrollment and
// assignment between start and end, inclusive. Nil means no scored entries,
// which callers must keep distinct from an average of zero.
func (r *GradeEntryRepository) AverageInWindow(ctx context.Context, enrollmentID, assignmentID string, start, end time.Time) (*float64, error) {
	const query = `SELECT AVG(score) FROM grade_entries WHERE enrollment_id = $1 AND assignment_id = $2 AND date BETWEEN $3 AND $4 AND score IS NOT NULL`
	var avg sql.NullFloat64
	if err := r.db.GetContext(ctx, &avg, query, enrollmentID, assignmentID, start, end); err != nil {
		return nil, fmt.Errorf("average grades in window: %w", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

// LatestRemarkInWindow returns the most recent non-empty remark for one
// enrollment and assignment inside the window, or empty string when none.
func (r *GradeEntryRepository) LatestRemarkInWindow(ctx context.Context, enrollmentID, assignmentID string, start, end time.Time) (string, error) {
	const query = `
		SELECT remark FROM grade_entries
		WHERE enrollment_id = $1 AND assignment_id = $2 AND date BETWEEN $3 AND $4
		  AND remark IS NOT NULL AND remark <> ''
		ORDER BY date DESC LIMIT 1`
	var remark string
	if err := r.db.GetContext(ctx, &remark, query, enrollmentID, assignmentID, start, end); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("latest remark in window: %w", err)
	}
	return remark, nil
}
