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

// ReportCardRepository handles persistence for materialized report cards.
type ReportCardRepository struct {
	db *sqlx.DB
}

// NewReportCardRepository instantiates a report card repository.
func NewReportCardRepository(db *sqlx.DB) *ReportCardRepository {
	return &ReportCardRepository{db: db}
}

// FindByID loads a report card by identifier with display metadata joined.
func (r *ReportCardRepository) FindByID(ctx context.Context, id string) (*models.ReportCardDetail, error) {
	const query = `
		SELECT rc.id, rc.enrollment_id, rc.period_id, rc.course_id, rc.year, rc.document, rc.comments,
		       rc.generated_at, rc.generated_by, rc.deleted, rc.deleted_by, rc.deleted_at,
		       e.first_name || ' ' || e.last_name AS student_name, c.name AS course_name, p.name AS period_name
		FROM report_cards rc
		JOIN enrollments e ON e.id = rc.enrollment_id
		JOIN courses c ON c.id = rc.course_id
		JOIN periods p ON p.id = rc.period_id
		WHERE rc.id = $1 AND rc.deleted = FALSE`
	var card models.ReportCardDetail
	if err := r.db.GetContext(ctx, &card, query, id); err != nil {
		return nil, err
	}
	return &card, nil
}

// List returns report cards matching the filter with display metadata.
func (r *ReportCardRepository) List(ctx context.Context, filter models.ReportCardFilter) ([]models.ReportCardDetail, int, error) {
	base := `FROM report_cards rc
		JOIN enrollments e ON e.id = rc.enrollment_id
		JOIN courses c ON c.id = rc.course_id
		JOIN periods p ON p.id = rc.period_id
		WHERE rc.deleted = FALSE`
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("rc.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.PeriodID != "" {
		conditions = append(conditions, fmt.Sprintf("rc.period_id = $%d", len(args)+1))
		args = append(args, filter.PeriodID)
	}
	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("rc.enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("rc.year = $%d", len(args)+1))
		args = append(args, filter.Year)
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
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT rc.id, rc.enrollment_id, rc.period_id, rc.course_id, rc.year, rc.document, rc.comments,
		rc.generated_at, rc.generated_by, rc.deleted, rc.deleted_by, rc.deleted_at,
		e.first_name || ' ' || e.last_name AS student_name, c.name AS course_name, p.name AS period_name
		%s ORDER BY e.last_name ASC, e.first_name ASC LIMIT %d OFFSET %d`, base, size, offset)

	var cards []models.ReportCardDetail
	if err := r.db.SelectContext(ctx, &cards, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list report cards: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count report cards: %w", err)
	}
	return cards, total, nil
}

// ListByCoursePeriod returns every non-deleted report card of a course for a
// period, joined with student names for rendering.
func (r *ReportCardRepository) ListByCoursePeriod(ctx context.Context, courseID, periodID string) ([]models.ReportCardDetail, error) {
	const query = `
		SELECT rc.id, rc.enrollment_id, rc.period_id, rc.course_id, rc.year, rc.document, rc.comments,
		       rc.generated_at, rc.generated_by, rc.deleted, rc.deleted_by, rc.deleted_at,
		       e.first_name || ' ' || e.last_name AS student_name, c.name AS course_name, p.name AS period_name
		FROM report_cards rc
		JOIN enrollments e ON e.id = rc.enrollment_id
		JOIN courses c ON c.id = rc.course_id
		JOIN periods p ON p.id = rc.period_id
		WHERE rc.course_id = $1 AND rc.period_id = $2 AND rc.deleted = FALSE
		ORDER BY e.last_name ASC, e.first_name ASC`
	var cards []models.ReportCardDetail
	if err := r.db.SelectContext(ctx, &cards, query, courseID, periodID); err != nil {
		return nil, fmt.Errorf("list course report cards: %w", err)
	}
	return cards, nil
}

// CreateMissing inserts empty report card rows for every given enrollment
// that does not already have one for the period. Existing rows, including
// soft-deleted ones, are left untouched. Returns how many rows were created.
func (r *ReportCardRepository) CreateMissing(ctx context.Context, enrollments []models.Enrollment, periodID string, generatedBy string) (int, error) {
	if len(enrollments) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk generate tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `
		INSERT INTO report_cards (id, enrollment_id, period_id, course_id, year, document, generated_at, generated_by, deleted)
		SELECT $1, $2, $3, $4, $5, '{}'::jsonb, $6, $7, FALSE
		WHERE NOT EXISTS (SELECT 1 FROM report_cards WHERE enrollment_id = $2 AND period_id = $3)`

	created := 0
	now := time.Now().UTC()
	for _, enrollment := range enrollments {
		res, execErr := tx.ExecContext(ctx, query, uuid.NewString(), enrollment.ID, periodID, enrollment.CourseID, enrollment.Year, now, generatedBy)
		if execErr != nil {
			err = fmt.Errorf("bulk insert report card for %s: %w", enrollment.ID, execErr)
			return 0, err
		}
		affected, raErr := res.RowsAffected()
		if raErr != nil {
			err = fmt.Errorf("bulk insert rows affected: %w", raErr)
			return 0, err
		}
		created += int(affected)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk generate tx: %w", err)
	}
	return created, nil
}

// UpdateDocument replaces a report card's computed document.
func (r *ReportCardRepository) UpdateDocument(ctx context.Context, id string, document models.ReportCardDocument, generatedBy string) error {
	const query = `UPDATE report_cards SET document = $1, generated_at = $2, generated_by = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, document, time.Now().UTC(), generatedBy, id); err != nil {
		return fmt.Errorf("update report card document: %w", err)
	}
	return nil
}

// UpdateComments sets the free-form comments block.
func (r *ReportCardRepository) UpdateComments(ctx context.Context, id string, comments *string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE report_cards SET comments = $1 WHERE id = $2`, comments, id); err != nil {
		return fmt.Errorf("update report card comments: %w", err)
	}
	return nil
}

// SoftDelete marks a report card as deleted without losing the document.
func (r *ReportCardRepository) SoftDelete(ctx context.Context, id, deletedBy string) error {
	const query = `UPDATE report_cards SET deleted = TRUE, deleted_by = $1, deleted_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, deletedBy, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("soft delete report card: %w", err)
	}
	return nil
}
