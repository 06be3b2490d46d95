package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/liu0521613/StudArch-sub001/internal/dto"
	"github.com/liu0521613/StudArch-sub001/internal/models"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
)

type accountUserStub struct {
	byEmail map[string]*models.User
	created []*models.User
	err     error
}

func (s *accountUserStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *accountUserStub) Create(_ context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-new"
	}
	s.created = append(s.created, user)
	return nil
}

type accountStudentStub struct {
	byNumber map[string]*models.Student
	created  []*models.Student
}

func (s *accountStudentStub) FindByNumber(_ context.Context, number string) (*models.Student, error) {
	if st, ok := s.byNumber[number]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

func (s *accountStudentStub) Create(_ context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "student-new"
	}
	s.created = append(s.created, student)
	return nil
}

type provisionerStub struct {
	userIDs []string
	err     error
}

func (s *provisionerStub) EnsureProfile(_ context.Context, userID string) error {
	s.userIDs = append(s.userIDs, userID)
	return s.err
}

func validCreateStudent() dto.CreateStudentRequest {
	return dto.CreateStudentRequest{
		Email:         "alice@example.com",
		Password:      "correct-horse",
		FullName:      "Alice Zhang",
		StudentNumber: "S001",
		ClassName:     "3-A",
	}
}

func TestCreateStudentProvisionsAccountAndProfile(t *testing.T) {
	users := &accountUserStub{byEmail: map[string]*models.User{}}
	students := &accountStudentStub{byNumber: map[string]*models.Student{}}
	profiles := &provisionerStub{}
	svc := NewAccountService(users, students, profiles, nil, nil)

	student, err := svc.CreateStudent(context.Background(), validCreateStudent())
	require.NoError(t, err)

	require.Len(t, users.created, 1)
	user := users.created[0]
	require.Equal(t, models.RoleStudent, user.Role)
	require.True(t, user.Active)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")))

	require.Len(t, students.created, 1)
	require.Equal(t, "S001", student.StudentNumber)
	require.NotNil(t, student.UserID)
	require.Equal(t, user.ID, *student.UserID)

	require.Equal(t, []string{user.ID}, profiles.userIDs)
}

func TestCreateStudentRejectsInvalidPayload(t *testing.T) {
	users := &accountUserStub{byEmail: map[string]*models.User{}}
	students := &accountStudentStub{byNumber: map[string]*models.Student{}}
	svc := NewAccountService(users, students, nil, nil, nil)

	req := validCreateStudent()
	req.Password = "short"
	_, err := svc.CreateStudent(context.Background(), req)
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	require.Empty(t, users.created)
}

func TestCreateStudentRejectsDuplicateEmail(t *testing.T) {
	users := &accountUserStub{byEmail: map[string]*models.User{
		"alice@example.com": {ID: "user-1", Email: "alice@example.com"},
	}}
	students := &accountStudentStub{byNumber: map[string]*models.Student{}}
	svc := NewAccountService(users, students, nil, nil, nil)

	_, err := svc.CreateStudent(context.Background(), validCreateStudent())
	require.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	require.Empty(t, users.created)
	require.Empty(t, students.created)
}

func TestCreateStudentRejectsDuplicateNumber(t *testing.T) {
	users := &accountUserStub{byEmail: map[string]*models.User{}}
	students := &accountStudentStub{byNumber: map[string]*models.Student{
		"S001": {ID: "student-1", StudentNumber: "S001"},
	}}
	svc := NewAccountService(users, students, nil, nil, nil)

	_, err := svc.CreateStudent(context.Background(), validCreateStudent())
	require.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	require.Empty(t, users.created)
}

func TestCreateStudentSurfacesLookupFailure(t *testing.T) {
	users := &accountUserStub{err: errors.New("connection refused")}
	students := &accountStudentStub{byNumber: map[string]*models.Student{}}
	svc := NewAccountService(users, students, nil, nil, nil)

	_, err := svc.CreateStudent(context.Background(), validCreateStudent())
	require.True(t, appErrors.HasCode(err, appErrors.ErrCollaboratorUnavailable.Code))
}

func TestCreateStudentToleratesProfileProvisionFailure(t *testing.T) {
	users := &accountUserStub{byEmail: map[string]*models.User{}}
	students := &accountStudentStub{byNumber: map[string]*models.Student{}}
	profiles := &provisionerStub{err: errors.New("profiles down")}
	svc := NewAccountService(users, students, profiles, nil, nil)

	student, err := svc.CreateStudent(context.Background(), validCreateStudent())
	require.NoError(t, err)
	require.NotNil(t, student)
	require.Len(t, students.created, 1)
}
