package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusonrisas/academia-api/internal/models"
)

func TestReportCardRepositoryCreateMissingCountsInserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportCardRepository(db)
	enrollments := []models.Enrollment{
		{ID: "en-1", CourseID: "c-1", Year: 2026},
		{ID: "en-2", CourseID: "c-1", Year: 2026},
		{ID: "en-3", CourseID: "c-1", Year: 2026},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO report_cards").
		WithArgs(sqlmock.AnyArg(), "en-1", "p-1", "c-1", 2026, sqlmock.AnyArg(), "admin-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	// en-2 already has a card for the period, nothing inserted
	mock.ExpectExec("INSERT INTO report_cards").
		WithArgs(sqlmock.AnyArg(), "en-2", "p-1", "c-1", 2026, sqlmock.AnyArg(), "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO report_cards").
		WithArgs(sqlmock.AnyArg(), "en-3", "p-1", "c-1", 2026, sqlmock.AnyArg(), "admin-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	created, err := repo.CreateMissing(context.Background(), enrollments, "p-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportCardRepositoryCreateMissingEmptyInput(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportCardRepository(db)
	created, err := repo.CreateMissing(context.Background(), nil, "p-1", "admin-1")
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportCardRepositoryListByCoursePeriod(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportCardRepository(db)
	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "period_id", "course_id", "year", "document", "comments", "generated_at", "generated_by", "deleted", "deleted_by", "deleted_at", "student_name", "course_name", "period_name"}).
		AddRow("rc-1", "en-1", "p-1", "c-1", 2026, []byte(`{}`), nil, time.Now(), "admin-1", false, nil, nil, "Ana Amariles", "Tercero A", "Primer Periodo").
		AddRow("rc-2", "en-2", "p-1", "c-1", 2026, []byte(`{}`), nil, time.Now(), "admin-1", false, nil, nil, "Bruno Benitez", "Tercero A", "Primer Periodo")
	mock.ExpectQuery("SELECT rc.id, rc.enrollment_id").
		WithArgs("c-1", "p-1").
		WillReturnRows(rows)

	cards, err := repo.ListByCoursePeriod(context.Background(), "c-1", "p-1")
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "Ana Amariles", cards[0].StudentName)
	assert.Equal(t, "Primer Periodo", cards[0].PeriodName)
}

func TestReportCardRepositoryUpdateComments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportCardRepository(db)
	comments := "Excelente desempeño este periodo."
	mock.ExpectExec("UPDATE report_cards SET comments").
		WithArgs(comments, "rc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateComments(context.Background(), "rc-1", &comments))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportCardRepositorySoftDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportCardRepository(db)
	mock.ExpectExec("UPDATE report_cards SET deleted").
		WithArgs("admin-1", sqlmock.AnyArg(), "rc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), "rc-1", "admin-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
