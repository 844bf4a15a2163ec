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

// AssignmentRepository handles persistence for subjects, courses and the
// teacher/subject/course assignments that grades hang off.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository instantiates an assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// List returns assignments matching the filter with subject metadata joined.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.SubjectAssignmentDetail, int, error) {
	base := "FROM subject_assignments sa JOIN subjects s ON s.id = sa.subject_id WHERE sa.deleted = FALSE"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("sa.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("sa.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("sa.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("sa.year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("sa.status = $%d", len(args)+1))
		args = append(args, filter.Status)
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

	query := fmt.Sprintf("SELECT sa.id, sa.teacher_id, sa.subject_id, sa.course_id, sa.year, sa.taught_hours, sa.status, sa.deleted, sa.created_at, s.name AS subject_name, s.area AS subject_area %s ORDER BY s.name ASC LIMIT %d OFFSET %d", base, size, offset)

	var assignments []models.SubjectAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}
	return assignments, total, nil
}

// ListByCourse returns the active assignments of one course and year, the set
// a report card document iterates over.
func (r *AssignmentRepository) ListByCourse(ctx context.Context, courseID string, year int) ([]models.SubjectAssignmentDetail, error) {
	const query = `
		SELECT sa.id, sa.teacher_id, sa.subject_id, sa.course_id, sa.year, sa.taught_hours, sa.status, sa.deleted, sa.created_at, s.name AS subject_name, s.area AS subject_area
		FROM subject_assignments sa
		JOIN subjects s ON s.id = sa.subject_id
		WHERE sa.course_id = $1 AND sa.year = $2 AND sa.status = $3 AND sa.deleted = FALSE
		ORDER BY s.name ASC`
	var assignments []models.SubjectAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, courseID, year, models.AssignmentStatusActive); err != nil {
		return nil, fmt.Errorf("list course assignments: %w", err)
	}
	return assignments, nil
}

// FindByID loads an assignment by identifier.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.SubjectAssignment, error) {
	const query = `SELECT id, teacher_id, subject_id, course_id, year, taught_hours, status, deleted, created_at FROM subject_assignments WHERE id = $1`
	var assignment models.SubjectAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Create inserts a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.SubjectAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = time.Now().UTC()
	if assignment.Status == "" {
		assignment.Status = models.AssignmentStatusActive
	}

	const query = `INSERT INTO subject_assignments (id, teacher_id, subject_id, course_id, year, taught_hours, status, deleted, created_at) VALUES (:id, :teacher_id, :subject_id, :course_id, :year, :taught_hours, :status, FALSE, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// UpdateTaughtHours sets the taught hours reported on report cards.
func (r *AssignmentRepository) UpdateTaughtHours(ctx context.Context, id string, hours int) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE subject_assignments SET taught_hours = $1 WHERE id = $2`, hours, id); err != nil {
		return fmt.Errorf("update taught hours: %w", err)
	}
	return nil
}

// SoftDelete marks an assignment as deleted.
func (r *AssignmentRepository) SoftDelete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE subject_assignments SET deleted = TRUE, status = $1 WHERE id = $2`, models.AssignmentStatusInactive, id); err != nil {
		return fmt.Errorf("soft delete assignment: %w", err)
	}
	return nil
}

// ListSubjects returns all subjects ordered by name.
func (r *AssignmentRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, `SELECT id, name, area, created_at FROM subjects ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindCourse loads a course by identifier.
func (r *AssignmentRepository) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, `SELECT id, name, created_at FROM courses WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListCourses returns all courses ordered by name.
func (r *AssignmentRepository) ListCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, `SELECT id, name, created_at FROM courses ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}
