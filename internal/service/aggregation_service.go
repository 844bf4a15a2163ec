package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/edusonrisas/academia-api/internal/models"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
)

type gradeAggregateReader interface {
	AverageInWindow(ctx context.Context, enrollmentID, assignmentID string, start, end time.Time) (*float64, error)
	LatestRemarkInWindow(ctx context.Context, enrollmentID, assignmentID string, start, end time.Time) (string, error)
}

type absenceCounter interface {
	AbsenceCountInWindow(ctx context.Context, enrollmentID, assignmentID string, start, end time.Time) (int, error)
}

// AggregationService computes the numeric blocks of report cards: period
// averages, the final average and course standings.
type AggregationService struct {
	grades     gradeAggregateReader
	attendance absenceCounter
	logger     *zap.Logger
}

// NewAggregationService constructs an AggregationService.
func NewAggregationService(grades gradeAggregateReader, attendance absenceCounter, logger *zap.Logger) *AggregationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AggregationService{grades: grades, attendance: attendance, logger: logger}
}

// Round2 rounds to two decimals using banker's rounding, the mode every
// stored average goes through.
func Round2(value float64) float64 {
	return math.RoundToEven(value*100) / 100
}

// PeriodAverage returns the rounded mean of scored entries inside the
// window. Nil means the student has no scored entries there, which is not
// the same as an average of zero.
func (s *AggregationService) PeriodAverage(ctx context.Context, enrollmentID, assignmentID string, window models.PeriodWindow) (*float64, error) {
	avg, err := s.grades.AverageInWindow(ctx, enrollmentID, assignmentID, window.Start, window.End)
	if err != nil {
		return nil, appErrors.Wrap(err, "AGGREGATION_FAILED", 500, "failed to compute period average")
	}
	if avg == nil {
		return nil, nil
	}
	rounded := Round2(*avg)
	return &rounded, nil
}

// BuildSubjectReport fills one subject's block: the averages for every
// window up to the current period, the final average on the closing period,
// the latest remark and the absence count of the current window.
func (s *AggregationService) BuildSubjectReport(ctx context.Context, enrollmentID string, assignment models.SubjectAssignmentDetail, windows []models.PeriodWindow, currentIndex int, scale *models.GradingScale, periodsPerYear int) (models.SubjectReport, error) {
	var report models.SubjectReport

	for i, window := range windows {
		index := i + 1
		if index > currentIndex {
			break
		}
		avg, err := s.PeriodAverage(ctx, enrollmentID, assignment.ID, window)
		if err != nil {
			return report, err
		}
		report.SetPeriodAverage(index, avg)
		if index == currentIndex {
			report.Score = avg
			report.Tier = scale.TierFor(avg)

			remark, err := s.grades.LatestRemarkInWindow(ctx, enrollmentID, assignment.ID, window.Start, window.End)
			if err != nil {
				return report, appErrors.Wrap(err, "AGGREGATION_FAILED", 500, "failed to load latest remark")
			}
			report.Remark = remark

			absences, err := s.attendance.AbsenceCountInWindow(ctx, enrollmentID, assignment.ID, window.Start, window.End)
			if err != nil {
				return report, appErrors.Wrap(err, "AGGREGATION_FAILED", 500, "failed to count absences")
			}
			report.Absences = absences
		}
	}

	if currentIndex == periodsPerYear {
		report.Final = finalAverage(report, periodsPerYear)
	}
	if assignment.TaughtHours != nil {
		report.TaughtHours = *assignment.TaughtHours
	}
	return report, nil
}

// CourseStanding ranks report cards by overall average, highest first.
// Students without any scored subject sort last, and ties break on the
// enrollment id so the ordering is deterministic.
func (s *AggregationService) CourseStanding(cards []models.ReportCardDetail) []models.StandingRow {
	rows := make([]models.StandingRow, 0, len(cards))
	for _, card := range cards {
		rows = append(rows, models.StandingRow{
			EnrollmentID: card.EnrollmentID,
			StudentName:  card.StudentName,
			Average:      card.OverallAverage(),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		left, right := rows[i].Average, rows[j].Average
		switch {
		case left == nil && right == nil:
			return rows[i].EnrollmentID < rows[j].EnrollmentID
		case left == nil:
			return false
		case right == nil:
			return true
		case *left != *right:
			return *left > *right
		default:
			return rows[i].EnrollmentID < rows[j].EnrollmentID
		}
	})

	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// finalAverage is the equally weighted mean of the period averages present
// on the report. Nil when no period has an average yet.
func finalAverage(report models.SubjectReport, periodsPerYear int) *float64 {
	sum := 0.0
	count := 0
	for i := 1; i <= periodsPerYear; i++ {
		if avg := report.PeriodAverage(i); avg != nil {
			sum += *avg
			count++
		}
	}
	if count == 0 {
		return nil
	}
	final := Round2(sum / float64(count))
	return &final
}
