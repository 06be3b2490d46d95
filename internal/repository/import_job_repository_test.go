package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/liu0521613/StudArch-sub001/internal/models"
)

func newImportJobRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestImportJobRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newImportJobRepoMock(t)
	defer cleanup()

	repo := NewImportJobRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO batch_import_jobs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.BatchImportJob{
		Kind:      models.ImportKindStudentRoster,
		TotalRows: 3,
		CreatedBy: "admin-1",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)
	require.Equal(t, models.ImportStatusPending, job.Status)
	require.NotNil(t, job.RowErrors)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImportJobRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newImportJobRepoMock(t)
	defer cleanup()

	repo := NewImportJobRepository(db)
	rows := sqlmock.NewRows([]string{"id", "kind", "total_rows", "success_rows", "failed_rows", "status", "row_errors", "created_by", "created_at", "finished_at"}).
		AddRow("job-1", "student_roster", 3, 2, 1, "COMPLETED", `[{"row":2,"error":"full_name is required"}]`, "admin-1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM batch_import_jobs WHERE id = $1")).
		WithArgs("job-1").
		WillReturnRows(rows)

	job, err := repo.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, "job-1", job.ID)
	require.Equal(t, job.TotalRows, job.SuccessRows+job.FailedRows)
	require.Len(t, job.RowErrors, 1)
	require.Equal(t, 2, job.RowErrors[0].Row)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImportJobRepositoryUpdateGuardsTerminalJobs(t *testing.T) {
	db, mock, cleanup := newImportJobRepoMock(t)
	defer cleanup()

	// the status guard lives in the WHERE clause
	repo := NewImportJobRepository(db)
	mock.ExpectExec(`(?s)UPDATE batch_import_jobs.*status NOT IN \('COMPLETED', 'FAILED'\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	job := &models.BatchImportJob{
		ID:          "job-1",
		Kind:        models.ImportKindStudentRoster,
		TotalRows:   3,
		SuccessRows: 3,
		Status:      models.ImportStatusCompleted,
		RowErrors:   models.ImportRowErrors{},
	}
	require.NoError(t, repo.Update(context.Background(), job))
	require.NoError(t, mock.ExpectationsWereMet())
}
