package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/liu0521613/StudArch-sub001/internal/models"
)

func newProfileRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestProfileRepositoryFindByUserID(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository(db)
	rows := sqlmock.NewRows([]string{"user_id", "contact_phone", "emergency_contact_name", "emergency_contact_phone", "home_address", "gender", "birth_date", "native_place", "nation", "political_status", "photo_path", "status", "completion_rate", "created_at", "updated_at"}).
		AddRow("user-1", "13800000000", "Parent Zhang", "13900000000", "1 Main St", "", nil, "", "", "", "", "PENDING", 40, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM student_profiles WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(rows)

	profile, err := repo.FindByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", profile.UserID)
	require.Equal(t, models.ProfileStatusPending, profile.Status)
	require.Equal(t, 40, profile.CompletionRate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryCreateEmptyIsIdempotent(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()

	// ON CONFLICT DO NOTHING: zero affected rows is still success
	repo := NewProfileRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_profiles")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.CreateEmpty(context.Background(), "user-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_profiles SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "user-1",
		[]models.ProfileStatus{models.ProfileStatusIncomplete, models.ProfileStatusRejected},
		models.ProfileStatusPending)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryUpdateStatusLostRace(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()

	// the profile moved out of the expected status between read and write
	repo := NewProfileRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_profiles SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "user-1",
		[]models.ProfileStatus{models.ProfileStatusPending},
		models.ProfileStatusApproved)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryUpdateStatusRequiresPrecondition(t *testing.T) {
	db, _, cleanup := newProfileRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository(db)
	err := repo.UpdateStatus(context.Background(), "user-1", nil, models.ProfileStatusApproved)
	require.Error(t, err)
}
