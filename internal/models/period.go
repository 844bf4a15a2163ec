package models

import "time"

// PeriodStatus represents the activation state of a year period.
type PeriodStatus string

const (
	PeriodStatusActive   PeriodStatus = "ACTIVE"
	PeriodStatusInactive PeriodStatus = "INACTIVE"
)

// PeriodDefinition is a named grading period with a recurring month-day
// window (e.g. "02-01" to "04-15") that is instantiated per school year.
type PeriodDefinition struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	StartMonthDay string     `db:"start_month_day" json:"start_month_day"`
	EndMonthDay   string     `db:"end_month_day" json:"end_month_day"`
	Deleted       bool       `db:"deleted" json:"deleted"`
	CreatedBy     *string    `db:"created_by" json:"created_by,omitempty"`
	DeletedBy     *string    `db:"deleted_by" json:"deleted_by,omitempty"`
	DeletedAt     *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// YearPeriod binds a PeriodDefinition to a concrete school year, carrying
// that year's month-day window and its own activation flag. At most one row
// is ACTIVE per year, and at most one ACTIVE system-wide.
type YearPeriod struct {
	ID            string       `db:"id" json:"id"`
	Year          int          `db:"year" json:"year"`
	PeriodID      string       `db:"period_id" json:"period_id"`
	StartMonthDay string       `db:"start_month_day" json:"start_month_day"`
	EndMonthDay   string       `db:"end_month_day" json:"end_month_day"`
	Status        PeriodStatus `db:"status" json:"status"`
}

// YearPeriodDetail enriches YearPeriod with the period name for listings.
type YearPeriodDetail struct {
	YearPeriod
	PeriodName string `db:"period_name" json:"period_name"`
}

// ActiveConfig is the denormalized snapshot of the currently active school
// year and grading period. It lives in the cache, not in a table; UpdatedAt
// mirrors the SchoolYear row's timestamp and doubles as a staleness check.
type ActiveConfig struct {
	Year       int       `db:"year" json:"year"`
	PeriodID   string    `db:"period_id" json:"period_id"`
	PeriodName string    `db:"period_name" json:"period_name"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// PeriodWindow is a year period's window resolved to concrete dates.
type PeriodWindow struct {
	Year       int       `json:"year"`
	PeriodID   string    `json:"period_id"`
	PeriodName string    `json:"period_name"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// Contains reports whether d falls inside the window, boundaries included.
func (w PeriodWindow) Contains(d time.Time) bool {
	day := d.Truncate(24 * time.Hour)
	return !day.Before(w.Start) && !day.After(w.End)
}
