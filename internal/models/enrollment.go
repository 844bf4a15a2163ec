package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive      EnrollmentStatus = "ACTIVE"
	EnrollmentStatusWithdrawn   EnrollmentStatus = "WITHDRAWN"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
)

// Enrollment captures a student's registration to a course for one school
// year (matrícula). The (document, year) pair is unique among non-withdrawn
// rows.
type Enrollment struct {
	ID        string           `db:"id" json:"id"`
	Document  string           `db:"document" json:"document"`
	FirstName string           `db:"first_name" json:"first_name"`
	LastName  string           `db:"last_name" json:"last_name"`
	CourseID  string           `db:"course_id" json:"course_id"`
	Year      int              `db:"year" json:"year"`
	Status    EnrollmentStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// FullName returns the student's display name.
func (e Enrollment) FullName() string {
	return e.FirstName + " " + e.LastName
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	CourseID string
	Year     int
	Status   EnrollmentStatus
	Search   string
	Page     int
	PageSize int
}
