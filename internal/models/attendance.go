package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
	AttendanceStatusLate    AttendanceStatus = "LATE"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusExcused, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// Attendance is one student's attendance record for one assignment session.
// Records are upserted on the (enrollment, assignment, date) key.
type Attendance struct {
	ID           string           `db:"id" json:"id"`
	EnrollmentID string           `db:"enrollment_id" json:"enrollment_id"`
	AssignmentID string           `db:"assignment_id" json:"assignment_id"`
	Date         time.Time        `db:"date" json:"date"`
	Status       AttendanceStatus `db:"status" json:"status"`
	Notes        *string          `db:"notes" json:"notes,omitempty"`
	CreatedBy    string           `db:"created_by" json:"created_by"`
	UpdatedBy    *string          `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes attendance listings.
type AttendanceFilter struct {
	EnrollmentID string
	AssignmentID string
	Status       *AttendanceStatus
	DateFrom     *time.Time
	DateTo       *time.Time
	Page         int
	PageSize     int
}

// AttendanceSummary summarises counts for a student within a window.
type AttendanceSummary struct {
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Excused int     `json:"excused"`
	Late    int     `json:"late"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}
