package models

import "time"

// GradingScale holds the per-year report book configuration: the three
// ascending tier cutoffs and the pass level. One row exists per school year,
// created lazily with defaults on first use.
type GradingScale struct {
	ID             string    `db:"id" json:"id"`
	Year           int       `db:"year" json:"year"`
	SuperiorCutoff float64   `db:"superior_cutoff" json:"superior_cutoff"`
	HighCutoff     float64   `db:"high_cutoff" json:"high_cutoff"`
	BasicCutoff    float64   `db:"basic_cutoff" json:"basic_cutoff"`
	PassLevel      float64   `db:"pass_level" json:"pass_level"`
	UpdatedBy      *string   `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Default cutoffs used when a year has no stored scale yet.
const (
	DefaultSuperiorCutoff = 4.5
	DefaultHighCutoff     = 4.0
	DefaultBasicCutoff    = 3.0
	DefaultPassLevel      = 70.0
)

// Ascending reports whether the cutoffs satisfy basic < high < superior.
func (s GradingScale) Ascending() bool {
	return s.BasicCutoff >= 0 && s.BasicCutoff < s.HighCutoff && s.HighCutoff < s.SuperiorCutoff
}

// TierFor maps an average to its performance tier; a nil average yields an
// empty tier so "no grades yet" renders blank rather than Bajo.
func (s GradingScale) TierFor(average *float64) PerformanceTier {
	if average == nil {
		return ""
	}
	switch {
	case *average >= s.SuperiorCutoff:
		return TierSuperior
	case *average >= s.HighCutoff:
		return TierHigh
	case *average >= s.BasicCutoff:
		return TierBasic
	default:
		return TierLow
	}
}

// VerdictFor maps a final average to pass/fail; nil means ungraded.
func (s GradingScale) VerdictFor(final *float64) Verdict {
	if final == nil {
		return VerdictUngraded
	}
	if *final >= s.BasicCutoff {
		return VerdictPass
	}
	return VerdictFail
}
