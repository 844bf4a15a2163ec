package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PerformanceTier is the ordinal band derived from a numeric average.
type PerformanceTier string

const (
	TierSuperior PerformanceTier = "Superior"
	TierHigh     PerformanceTier = "Alto"
	TierBasic    PerformanceTier = "Básico"
	TierLow      PerformanceTier = "Bajo"
)

// Verdict is the pass/fail outcome for a final average.
type Verdict string

const (
	VerdictPass     Verdict = "PASS"
	VerdictFail     Verdict = "FAIL"
	VerdictUngraded Verdict = "UNGRADED"
)

// SubjectReport is the per-subject block inside a report card document.
// The JSON keys are wire-compatible with the documents stored by the legacy
// system: p1..p4 are period averages, pf the final average, nota the display
// score for the requested period, desempeno the tier label, observacion the
// latest remark, fl the absence count and ih the taught hours.
type SubjectReport struct {
	P1          *float64        `json:"p1,omitempty"`
	P2          *float64        `json:"p2,omitempty"`
	P3          *float64        `json:"p3,omitempty"`
	P4          *float64        `json:"p4,omitempty"`
	Final       *float64        `json:"pf,omitempty"`
	Score       *float64        `json:"nota"`
	Tier        PerformanceTier `json:"desempeno"`
	Remark      string          `json:"observacion"`
	Absences    int             `json:"fl"`
	TaughtHours int             `json:"ih"`
}

// PeriodAverage returns the average stored for the 1-based period index.
func (r SubjectReport) PeriodAverage(index int) *float64 {
	switch index {
	case 1:
		return r.P1
	case 2:
		return r.P2
	case 3:
		return r.P3
	case 4:
		return r.P4
	default:
		return nil
	}
}

// SetPeriodAverage stores an average under the 1-based period index.
func (r *SubjectReport) SetPeriodAverage(index int, value *float64) {
	switch index {
	case 1:
		r.P1 = value
	case 2:
		r.P2 = value
	case 3:
		r.P3 = value
	case 4:
		r.P4 = value
	}
}

// ReportCardDocument maps subject id to its report block.
type ReportCardDocument map[string]SubjectReport

// Value implements driver.Valuer so the document persists as JSONB.
func (d ReportCardDocument) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *ReportCardDocument) Scan(src interface{}) error {
	if src == nil {
		*d = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported report card document type %T", src)
	}
	return json.Unmarshal(raw, d)
}

// ReportCard is the persisted denormalized document for one enrollment in
// one grading period of one school year. The document is a cache of the last
// computation, recomputed in full before every view or download.
type ReportCard struct {
	ID          string             `db:"id" json:"id"`
	EnrollmentID string            `db:"enrollment_id" json:"enrollment_id"`
	PeriodID    string             `db:"period_id" json:"period_id"`
	CourseID    string             `db:"course_id" json:"course_id"`
	Year        int                `db:"year" json:"year"`
	Document    ReportCardDocument `db:"document" json:"document"`
	Comments    *string            `db:"comments" json:"comments,omitempty"`
	GeneratedAt time.Time          `db:"generated_at" json:"generated_at"`
	GeneratedBy string             `db:"generated_by" json:"generated_by"`
	Deleted     bool               `db:"deleted" json:"deleted"`
	DeletedBy   *string            `db:"deleted_by" json:"deleted_by,omitempty"`
	DeletedAt   *time.Time         `db:"deleted_at" json:"deleted_at,omitempty"`
}

// OverallAverage is the mean of the per-subject display scores, nil when no
// subject carries a score yet.
func (r ReportCard) OverallAverage() *float64 {
	sum := 0.0
	count := 0
	for _, subject := range r.Document {
		if subject.Score == nil {
			continue
		}
		sum += *subject.Score
		count++
	}
	if count == 0 {
		return nil
	}
	avg := sum / float64(count)
	return &avg
}

// FinalAverage is the mean of the per-subject final averages, nil until at
// least one subject carries a final.
func (r ReportCard) FinalAverage() *float64 {
	sum := 0.0
	count := 0
	for _, subject := range r.Document {
		if subject.Final == nil {
			continue
		}
		sum += *subject.Final
		count++
	}
	if count == 0 {
		return nil
	}
	avg := sum / float64(count)
	return &avg
}

// ReportCardDetail enriches a report card with display metadata.
type ReportCardDetail struct {
	ReportCard
	StudentName string `db:"student_name" json:"student_name"`
	CourseName  string `db:"course_name" json:"course_name"`
	PeriodName  string `db:"period_name" json:"period_name"`
}

// ReportCardFilter scopes report card listings.
type ReportCardFilter struct {
	CourseID     string
	PeriodID     string
	EnrollmentID string
	Year         int
	Page         int
	PageSize     int
}

// StandingRow is one student's position in a course ranking.
type StandingRow struct {
	EnrollmentID string   `json:"enrollment_id"`
	StudentName  string   `json:"student_name"`
	Average      *float64 `json:"average,omitempty"`
	Rank         int      `json:"rank"`
}
