package models

import "time"

// Subject is a taught discipline (e.g. "Matemáticas").
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Area      *string   `db:"area" json:"area,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Course is a class group students enroll into (e.g. "Transición A").
type Course struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AssignmentStatus represents the lifecycle of a subject assignment.
type AssignmentStatus string

const (
	AssignmentStatusActive   AssignmentStatus = "ACTIVE"
	AssignmentStatusInactive AssignmentStatus = "INACTIVE"
)

// SubjectAssignment binds a teacher to a subject within a course for one
// school year. Grade and attendance entries hang off assignments.
type SubjectAssignment struct {
	ID          string           `db:"id" json:"id"`
	TeacherID   string           `db:"teacher_id" json:"teacher_id"`
	SubjectID   string           `db:"subject_id" json:"subject_id"`
	CourseID    string           `db:"course_id" json:"course_id"`
	Year        int              `db:"year" json:"year"`
	TaughtHours *int             `db:"taught_hours" json:"taught_hours,omitempty"`
	Status      AssignmentStatus `db:"status" json:"status"`
	Deleted     bool             `db:"deleted" json:"deleted"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// SubjectAssignmentDetail enriches an assignment with subject metadata.
type SubjectAssignmentDetail struct {
	SubjectAssignment
	SubjectName string  `db:"subject_name" json:"subject_name"`
	SubjectArea *string `db:"subject_area" json:"subject_area,omitempty"`
}

// AssignmentFilter scopes assignment listings.
type AssignmentFilter struct {
	TeacherID string
	CourseID  string
	SubjectID string
	Year      int
	Status    AssignmentStatus
	Page      int
	PageSize  int
}
