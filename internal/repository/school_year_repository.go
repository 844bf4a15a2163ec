package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edusonrisas/academia-api/internal/models"
)

// SchoolYearRepository handles persistence for school years and the
// year/period activation transaction.
type SchoolYearRepository struct {
	db *sqlx.DB
}

// NewSchoolYearRepository instantiates a school year repository.
func NewSchoolYearRepository(db *sqlx.DB) *SchoolYearRepository {
	return &SchoolYearRepository{db: db}
}

// List returns every school year ordered by calendar year descending.
func (r *SchoolYearRepository) List(ctx context.Context) ([]models.SchoolYear, error) {
	const query = `SELECT id, year, status, created_at, updated_at FROM school_years ORDER BY year DESC`
	var years []models.SchoolYear
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("list school years: %w", err)
	}
	return years, nil
}

// FindByYear loads a school year by its calendar year.
func (r *SchoolYearRepository) FindByYear(ctx context.Context, year int) (*models.SchoolYear, error) {
	const query = `SELECT id, year, status, created_at, updated_at FROM school_years WHERE year = $1`
	var sy models.SchoolYear
	if err := r.db.GetContext(ctx, &sy, query, year); err != nil {
		return nil, err
	}
	return &sy, nil
}

// ExistsByYear checks whether a school year is already registered.
func (r *SchoolYearRepository) ExistsByYear(ctx context.Context, year int) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM school_years WHERE year = $1 LIMIT 1`, year)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check school year uniqueness: %w", err)
	}
	return true, nil
}

// FindActive returns the active school year, or sql.ErrNoRows when none is
// active yet.
func (r *SchoolYearRepository) FindActive(ctx context.Context) (*models.SchoolYear, error) {
	const query = `SELECT id, year, status, created_at, updated_at FROM school_years WHERE status = $1 LIMIT 1`
	var sy models.SchoolYear
	if err := r.db.GetContext(ctx, &sy, query, models.YearStatusActive); err != nil {
		return nil, err
	}
	return &sy, nil
}

// CreateWithPeriods inserts a new inactive school year together with one
// inactive year/period row per existing period definition, all in one
// transaction so a half-created year never becomes visible.
func (r *SchoolYearRepository) CreateWithPeriods(ctx context.Context, sy *models.SchoolYear, periods []models.PeriodDefinition) error {
	if sy.ID == "" {
		sy.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sy.Status = models.YearStatusInactive
	sy.CreatedAt = now
	sy.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create year tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertYear = `INSERT INTO school_years (id, year, status, created_at, updated_at) VALUES (:id, :year, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertYear, sy); err != nil {
		return fmt.Errorf("create school year: %w", err)
	}

	const insertPair = `INSERT INTO year_periods (id, year, period_id, start_month_day, end_month_day, status) VALUES ($1, $2, $3, $4, $5, $6)`
	for _, period := range periods {
		if _, err = tx.ExecContext(ctx, insertPair, uuid.NewString(), sy.Year, period.ID, period.StartMonthDay, period.EndMonthDay, models.PeriodStatusInactive); err != nil {
			return fmt.Errorf("create year period for %s: %w", period.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create year tx: %w", err)
	}
	return nil
}

// ActivateYearPeriod switches the active configuration to the given year and
// period pair in a single transaction. The year row is locked first so two
// concurrent activations serialize; the whole switch rolls back when the
// requested pair does not exist.
func (r *SchoolYearRepository) ActivateYearPeriod(ctx context.Context, year int, periodID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activation tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var yearID string
	if err = tx.GetContext(ctx, &yearID, `SELECT id FROM school_years WHERE year = $1 FOR UPDATE`, year); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("lock school year %d: %w", year, err)
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE school_years SET status = $1, updated_at = $2 WHERE status = $3 AND id <> $4`, models.YearStatusInactive, now, models.YearStatusActive, yearID); err != nil {
		return fmt.Errorf("deactivate other years: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE school_years SET status = $1, updated_at = $2 WHERE id = $3`, models.YearStatusActive, now, yearID); err != nil {
		return fmt.Errorf("activate year %d: %w", year, err)
	}

	// Only one pair may be active system-wide: clear the year's own pairs
	// and whichever pair is active in any other year before flipping the
	// target on.
	if _, err = tx.ExecContext(ctx, `UPDATE year_periods SET status = $1 WHERE year = $2`, models.PeriodStatusInactive, year); err != nil {
		return fmt.Errorf("deactivate year periods for %d: %w", year, err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE year_periods SET status = $1 WHERE status = $2 AND year <> $3`, models.PeriodStatusInactive, models.PeriodStatusActive, year); err != nil {
		return fmt.Errorf("deactivate active pair in other years: %w", err)
	}

	res, execErr := tx.ExecContext(ctx, `UPDATE year_periods SET status = $1 WHERE year = $2 AND period_id = $3`, models.PeriodStatusActive, year, periodID)
	if execErr != nil {
		err = fmt.Errorf("activate year period pair: %w", execErr)
		return err
	}
	affected, raErr := res.RowsAffected()
	if raErr != nil {
		err = fmt.Errorf("activation rows affected: %w", raErr)
		return err
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit activation tx: %w", err)
	}
	return nil
}

// ActiveConfig resolves the active year joined with its active period, or
// sql.ErrNoRows when no year is active. A year without an active period
// yields a config with an empty period id.
func (r *SchoolYearRepository) ActiveConfig(ctx context.Context) (*models.ActiveConfig, error) {
	const query = `
		SELECT sy.year, COALESCE(yp.period_id, '') AS period_id, COALESCE(p.name, '') AS period_name, sy.updated_at
		FROM school_years sy
		LEFT JOIN year_periods yp ON yp.year = sy.year AND yp.status = $1
		LEFT JOIN periods p ON p.id = yp.period_id
		WHERE sy.status = $2
		LIMIT 1`
	var cfg models.ActiveConfig
	if err := r.db.GetContext(ctx, &cfg, query, models.PeriodStatusActive, models.YearStatusActive); err != nil {
		return nil, err
	}
	return &cfg, nil
}
