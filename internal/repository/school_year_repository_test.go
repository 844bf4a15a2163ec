package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusonrisas/academia-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestSchoolYearRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSchoolYearRepository(db)
	rows := sqlmock.NewRows([]string{"id", "year", "status", "created_at", "updated_at"}).
		AddRow("sy-1", 2026, "ACTIVE", time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, year, status").
		WithArgs(models.YearStatusActive).
		WillReturnRows(rows)

	sy, err := repo.FindActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2026, sy.Year)
	assert.Equal(t, models.YearStatusActive, sy.Status)
}

func TestSchoolYearRepositoryExistsByYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSchoolYearRepository(db)
	mock.ExpectQuery("SELECT 1 FROM school_years").
		WithArgs(2026).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM school_years").
		WithArgs(2027).
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByYear(context.Background(), 2026)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByYear(context.Background(), 2027)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSchoolYearRepositoryCreateWithPeriods(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSchoolYearRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO school_years").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO year_periods").
		WithArgs(sqlmock.AnyArg(), 2027, "p-1", "02-01", "04-15", models.PeriodStatusInactive).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO year_periods").
		WithArgs(sqlmock.AnyArg(), 2027, "p-2", "04-16", "06-30", models.PeriodStatusInactive).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	sy := &models.SchoolYear{Year: 2027}
	periods := []models.PeriodDefinition{
		{ID: "p-1", Name: "Primer Periodo", StartMonthDay: "02-01", EndMonthDay: "04-15"},
		{ID: "p-2", Name: "Segundo Periodo", StartMonthDay: "04-16", EndMonthDay: "06-30"},
	}
	require.NoError(t, repo.CreateWithPeriods(context.Background(), sy, periods))
	assert.NotEmpty(t, sy.ID)
	assert.Equal(t, models.YearStatusInactive, sy.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolYearRepositoryActivateYearPeriod(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSchoolYearRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM school_years WHERE year = \\$1 FOR UPDATE").
		WithArgs(2026).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sy-1"))
	mock.ExpectExec("UPDATE school_years SET status").
		WithArgs(models.YearStatusInactive, sqlmock.AnyArg(), models.YearStatusActive, "sy-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE school_years SET status").
		WithArgs(models.YearStatusActive, sqlmock.AnyArg(), "sy-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE year_periods SET status").
		WithArgs(models.PeriodStatusInactive, 2026).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("UPDATE year_periods SET status").
		WithArgs(models.PeriodStatusInactive, models.PeriodStatusActive, 2026).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE year_periods SET status").
		WithArgs(models.PeriodStatusActive, 2026, "p-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ActivateYearPeriod(context.Background(), 2026, "p-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolYearRepositoryActivateClearsActivePairInOtherYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	// (2024, p-2) is the active pair when 2025/p-1 is activated; the
	// cross-year sweep must deactivate it even though its period differs.
	repo := NewSchoolYearRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM school_years WHERE year = \\$1 FOR UPDATE").
		WithArgs(2025).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sy-2025"))
	mock.ExpectExec("UPDATE school_years SET status").
		WithArgs(models.YearStatusInactive, sqlmock.AnyArg(), models.YearStatusActive, "sy-2025").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE school_years SET status").
		WithArgs(models.YearStatusActive, sqlmock.AnyArg(), "sy-2025").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE year_periods SET status").
		WithArgs(models.PeriodStatusInactive, 2025).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("UPDATE year_periods SET status").
		WithArgs(models.PeriodStatusInactive, models.PeriodStatusActive, 2025).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE year_periods SET status").
		WithArgs(models.PeriodStatusActive, 2025, "p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ActivateYearPeriod(context.Background(), 2025, "p-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolYearRepositoryActivateUnknownPairRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSchoolYearRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM school_years WHERE year = \\$1 FOR UPDATE").
		WithArgs(2026).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sy-1"))
	mock.ExpectExec("UPDATE school_years SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE school_years SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE year_periods SET status").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("UPDATE year_periods SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE year_periods SET status").
		WithArgs(models.PeriodStatusActive, 2026, "p-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ActivateYearPeriod(context.Background(), 2026, "p-missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolYearRepositoryActivateUnknownYearRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSchoolYearRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM school_years WHERE year = \\$1 FOR UPDATE").
		WithArgs(2030).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.ActivateYearPeriod(context.Background(), 2030, "p-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolYearRepositoryActiveConfig(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSchoolYearRepository(db)
	updatedAt := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"year", "period_id", "period_name", "updated_at"}).
		AddRow(2026, "p-1", "Primer Periodo", updatedAt)
	mock.ExpectQuery("SELECT sy.year, COALESCE").
		WithArgs(models.PeriodStatusActive, models.YearStatusActive).
		WillReturnRows(rows)

	cfg, err := repo.ActiveConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2026, cfg.Year)
	assert.Equal(t, "p-1", cfg.PeriodID)
	assert.Equal(t, "Primer Periodo", cfg.PeriodName)
	assert.True(t, cfg.UpdatedAt.Equal(updatedAt))
}

func TestSchoolYearRepositoryActiveConfigYearWithoutPeriod(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSchoolYearRepository(db)
	rows := sqlmock.NewRows([]string{"year", "period_id", "period_name", "updated_at"}).
		AddRow(2026, "", "", time.Now())
	mock.ExpectQuery("SELECT sy.year, COALESCE").
		WithArgs(models.PeriodStatusActive, models.YearStatusActive).
		WillReturnRows(rows)

	cfg, err := repo.ActiveConfig(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cfg.PeriodID)
}
