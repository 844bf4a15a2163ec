package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusonrisas/academia-api/internal/models"
)

func TestGradeEntryRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeEntryRepository(db)
	mock.ExpectExec("INSERT INTO grade_entries").
		WillReturnResult(sqlmock.NewResult(1, 1))

	score := 4.5
	updatedBy := "teacher-1"
	entry := &models.GradeEntry{
		EnrollmentID: "en-1",
		AssignmentID: "as-1",
		PeriodID:     "p-1",
		Date:         time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Score:        &score,
		CreatedBy:    "teacher-1",
		UpdatedBy:    &updatedBy,
	}
	require.NoError(t, repo.Upsert(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeEntryRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeEntryRepository(db)
	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "assignment_id", "period_id", "date", "score", "remark", "created_by", "updated_by", "created_at", "updated_at"}).
		AddRow("g-1", "en-1", "as-1", "p-1", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), 4.5, nil, "teacher-1", "teacher-1", time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, enrollment_id, assignment_id").
		WithArgs("en-1", "p-1").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("en-1", "p-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	entries, total, err := repo.List(context.Background(), models.GradeEntryFilter{
		EnrollmentID: "en-1",
		PeriodID:     "p-1",
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, total)
	require.NotNil(t, entries[0].Score)
	assert.InDelta(t, 4.5, *entries[0].Score, 1e-9)
}

func TestGradeEntryRepositoryAverageInWindow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeEntryRepository(db)
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT AVG\\(score\\) FROM grade_entries").
		WithArgs("en-1", "as-1", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(3.8333333))

	avg, err := repo.AverageInWindow(context.Background(), "en-1", "as-1", start, end)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 3.8333333, *avg, 1e-9)
}

func TestGradeEntryRepositoryAverageInWindowNoScores(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeEntryRepository(db)
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT AVG\\(score\\) FROM grade_entries").
		WithArgs("en-1", "as-1", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(nil))

	avg, err := repo.AverageInWindow(context.Background(), "en-1", "as-1", start, end)
	require.NoError(t, err)
	assert.Nil(t, avg)
}

func TestGradeEntryRepositoryLatestRemarkInWindow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeEntryRepository(db)
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT remark FROM grade_entries").
		WithArgs("en-1", "as-1", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"remark"}).AddRow("Mejora en participación"))

	remark, err := repo.LatestRemarkInWindow(context.Background(), "en-1", "as-1", start, end)
	require.NoError(t, err)
	assert.Equal(t, "Mejora en participación", remark)
}

func TestGradeEntryRepositoryLatestRemarkInWindowEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeEntryRepository(db)
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT remark FROM grade_entries").
		WithArgs("en-1", "as-1", start, end).
		WillReturnError(sql.ErrNoRows)

	remark, err := repo.LatestRemarkInWindow(context.Background(), "en-1", "as-1", start, end)
	require.NoError(t, err)
	assert.Empty(t, remark)
}

func TestGradeEntryRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradeEntryRepository(db)
	mock.ExpectExec("DELETE FROM grade_entries").
		WithArgs("g-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "g-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
