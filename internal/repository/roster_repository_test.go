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

func newRosterRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRosterRepositoryCreateInserts(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()

	repo := NewRosterRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO roster_assignments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	inserted, err := repo.Create(context.Background(), &models.RosterAssignment{
		TeacherID: "teacher-1",
		StudentID: "student-1",
	})
	require.NoError(t, err)
	require.True(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryCreateConflictIsNoop(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()

	// ON CONFLICT DO NOTHING: a re-assigned pair affects zero rows
	repo := NewRosterRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO roster_assignments")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.Create(context.Background(), &models.RosterAssignment{
		TeacherID: "teacher-1",
		StudentID: "student-1",
	})
	require.NoError(t, err)
	require.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryExists(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()

	repo := NewRosterRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM roster_assignments")).
		WithArgs("teacher-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	ok, err := repo.Exists(context.Background(), "teacher-1", "student-1")
	require.NoError(t, err)
	require.True(t, ok)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM roster_assignments")).
		WithArgs("teacher-1", "student-2").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	ok, err = repo.Exists(context.Background(), "teacher-1", "student-2")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryDeleteMissingPair(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()

	repo := NewRosterRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM roster_assignments")).
		WithArgs("teacher-1", "student-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Delete(context.Background(), "teacher-1", "student-1")
	require.NoError(t, err)
	require.False(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryListByTeacher(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()

	repo := NewRosterRepository(db)
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "student_id", "notes", "assigned_at", "student_name", "student_number"}).
		AddRow("ra-1", "teacher-1", "user-1", nil, time.Now(), "Alice Zhang", "S001")
	mock.ExpectQuery(regexp.QuoteMeta("JOIN students s ON s.user_id = ra.student_id")).
		WithArgs("teacher-1").
		WillReturnRows(rows)

	assignments, err := repo.ListByTeacher(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	require.Equal(t, "user-1", assignments[0].StudentID)
	require.Equal(t, "Alice Zhang", assignments[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryStudentIDs(t *testing.T) {
	db, mock, cleanup := newRosterRepoMock(t)
	defer cleanup()

	repo := NewRosterRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM roster_assignments")).
		WithArgs("teacher-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("user-1").AddRow("user-2"))

	ids, err := repo.StudentIDs(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.Equal(t, []string{"user-1", "user-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
