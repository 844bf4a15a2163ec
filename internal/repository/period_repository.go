package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edusonrisas/academia-api/internal/models"
)

// PeriodRepository handles persistence for period definitions and their
// per-year instantiations.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository instantiates a period repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// List returns period definitions, excluding soft-deleted ones unless asked.
func (r *PeriodRepository) List(ctx context.Context, includeDeleted bool) ([]models.PeriodDefinition, error) {
	query := `SELECT id, name, start_month_day, end_month_day, deleted, created_by, deleted_by, deleted_at, created_at FROM periods`
	if !includeDeleted {
		query += ` WHERE deleted = FALSE`
	}
	query += ` ORDER BY start_month_day ASC`

	var periods []models.PeriodDefinition
	if err := r.db.SelectContext(ctx, &periods, query); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

// FindByID loads a period definition by identifier.
func (r *PeriodRepository) FindByID(ctx context.Context, id string) (*models.PeriodDefinition, error) {
	const query = `SELECT id, name, start_month_day, end_month_day, deleted, created_by, deleted_by, deleted_at, created_at FROM periods WHERE id = $1`
	var period models.PeriodDefinition
	if err := r.db.GetContext(ctx, &period, query, id); err != nil {
		return nil, err
	}
	return &period, nil
}

// FindByName loads a non-deleted period definition by its unique name.
func (r *PeriodRepository) FindByName(ctx context.Context, name string) (*models.PeriodDefinition, error) {
	const query = `SELECT id, name, start_month_day, end_month_day, deleted, created_by, deleted_by, deleted_at, created_at FROM periods WHERE name = $1 AND deleted = FALSE`
	var period models.PeriodDefinition
	if err := r.db.GetContext(ctx, &period, query, name); err != nil {
		return nil, err
	}
	return &period, nil
}

// CreateWithYearRows inserts a period definition and fans out one inactive
// year/period row per existing school year, all in one transaction.
func (r *PeriodRepository) CreateWithYearRows(ctx context.Context, period *models.PeriodDefinition, years []models.SchoolYear) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	period.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create period tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertPeriod = `INSERT INTO periods (id, name, start_month_day, end_month_day, deleted, created_by, created_at) VALUES (:id, :name, :start_month_day, :end_month_day, FALSE, :created_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertPeriod, period); err != nil {
		return fmt.Errorf("create period: %w", err)
	}

	const insertPair = `INSERT INTO year_periods (id, year, period_id, start_month_day, end_month_day, status) VALUES ($1, $2, $3, $4, $5, $6)`
	for _, sy := range years {
		if _, err = tx.ExecContext(ctx, insertPair, uuid.NewString(), sy.Year, period.ID, period.StartMonthDay, period.EndMonthDay, models.PeriodStatusInactive); err != nil {
			return fmt.Errorf("create year period for %d: %w", sy.Year, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create period tx: %w", err)
	}
	return nil
}

// UpdateWindow changes a period's month-day window and propagates the new
// window to every year row that has not diverged from the definition.
func (r *PeriodRepository) UpdateWindow(ctx context.Context, period *models.PeriodDefinition) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update period tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const updatePeriod = `UPDATE periods SET name = :name, start_month_day = :start_month_day, end_month_day = :end_month_day WHERE id = :id AND deleted = FALSE`
	if _, err = tx.NamedExecContext(ctx, updatePeriod, period); err != nil {
		return fmt.Errorf("update period: %w", err)
	}

	const updatePairs = `UPDATE year_periods SET start_month_day = $1, end_month_day = $2 WHERE period_id = $3`
	if _, err = tx.ExecContext(ctx, updatePairs, period.StartMonthDay, period.EndMonthDay, period.ID); err != nil {
		return fmt.Errorf("propagate period window: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update period tx: %w", err)
	}
	return nil
}

// SoftDelete marks a period definition as deleted and deactivates its year
// rows so the pair can no longer be activated.
func (r *PeriodRepository) SoftDelete(ctx context.Context, id, deletedBy string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete period tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE periods SET deleted = TRUE, deleted_by = $1, deleted_at = $2 WHERE id = $3`, deletedBy, now, id); err != nil {
		return fmt.Errorf("soft delete period: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE year_periods SET status = $1 WHERE period_id = $2`, models.PeriodStatusInactive, id); err != nil {
		return fmt.Errorf("deactivate deleted period pairs: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete period tx: %w", err)
	}
	return nil
}

// ListYearPeriods returns the year/period rows for one school year with the
// period names joined in.
func (r *PeriodRepository) ListYearPeriods(ctx context.Context, year int) ([]models.YearPeriodDetail, error) {
	const query = `
		SELECT yp.id, yp.year, yp.period_id, yp.start_month_day, yp.end_month_day, yp.status, p.name AS period_name
		FROM year_periods yp
		JOIN periods p ON p.id = yp.period_id
		WHERE yp.year = $1 AND p.deleted = FALSE
		ORDER BY yp.start_month_day ASC`
	var pairs []models.YearPeriodDetail
	if err := r.db.SelectContext(ctx, &pairs, query, year); err != nil {
		return nil, fmt.Errorf("list year periods for %d: %w", year, err)
	}
	return pairs, nil
}

// FindYearPeriod loads the row binding one period to one year.
func (r *PeriodRepository) FindYearPeriod(ctx context.Context, year int, periodID string) (*models.YearPeriod, error) {
	const query = `SELECT id, year, period_id, start_month_day, end_month_day, status FROM year_periods WHERE year = $1 AND period_id = $2`
	var pair models.YearPeriod
	if err := r.db.GetContext(ctx, &pair, query, year, periodID); err != nil {
		return nil, err
	}
	return &pair, nil
}

// UpdateYearWindow overrides the month-day window of a single year row
// without touching the period definition.
func (r *PeriodRepository) UpdateYearWindow(ctx context.Context, year int, periodID, startMonthDay, endMonthDay string) error {
	const query = `UPDATE year_periods SET start_month_day = $1, end_month_day = $2 WHERE year = $3 AND period_id = $4`
	if _, err := r.db.ExecContext(ctx, query, startMonthDay, endMonthDay, year, periodID); err != nil {
		return fmt.Errorf("update year period window: %w", err)
	}
	return nil
}
