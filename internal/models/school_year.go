package models

import "time"

// YearStatus represents the lifecycle state of a school year.
type YearStatus string

const (
	YearStatusActive   YearStatus = "ACTIVE"
	YearStatusInactive YearStatus = "INACTIVE"
)

// Valid returns true when the status is a supported value.
func (s YearStatus) Valid() bool {
	return s == YearStatusActive || s == YearStatusInactive
}

// SchoolYear models one academic year. At most one row is ACTIVE at any time;
// rows are archived by flipping the status, never deleted.
type SchoolYear struct {
	ID        string     `db:"id" json:"id"`
	Year      int        `db:"year" json:"year"`
	Status    YearStatus `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// SchoolYearFilter defines filters supported by list endpoints.
type SchoolYearFilter struct {
	Status    YearStatus
	Page      int
	PageSize  int
	SortOrder string
}
