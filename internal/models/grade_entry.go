package models

import "time"

// GradeEntry is one student's score for one subject assignment on one date.
// Entries are upserted on the (enrollment, assignment, date) key; a nil score
// with a remark is a valid entry ("observation only").
type GradeEntry struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	PeriodID     string    `db:"period_id" json:"period_id"`
	Date         time.Time `db:"date" json:"date"`
	Score        *float64  `db:"score" json:"score,omitempty"`
	Remark       *string   `db:"remark" json:"remark,omitempty"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	UpdatedBy    *string   `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GradeEntryFilter scopes grade entry listings.
type GradeEntryFilter struct {
	EnrollmentID string
	AssignmentID string
	PeriodID     string
	DateFrom     *time.Time
	DateTo       *time.Time
	Page         int
	PageSize     int
}
