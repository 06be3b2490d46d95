package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/liu0521613/StudArch-sub001/internal/dto"
	"github.com/liu0521613/StudArch-sub001/internal/models"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
)

type accountUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type accountStudentStore interface {
	FindByNumber(ctx context.Context, number string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
}

// AccountService provisions login accounts for the student master list.
// Teacher and admin accounts are seeded operationally; only students are
// created through the API.
type AccountService struct {
	users     accountUserStore
	students  accountStudentStore
	profiles  profileProvisioner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAccountService constructs the service.
func NewAccountService(users accountUserStore, students accountStudentStore, profiles profileProvisioner, validate *validator.Validate, logger *zap.Logger) *AccountService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{users: users, students: students, profiles: profiles, validator: validate, logger: logger}
}

// CreateStudent creates a student account and the linked master record in one
// call. Email and student number must both be unused.
func (s *AccountService) CreateStudent(ctx context.Context, req dto.CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to check email")
	}
	if _, err := s.students.FindByNumber(ctx, req.StudentNumber); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student number already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to check student number")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleStudent,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to create account")
	}

	student := &models.Student{
		UserID:        &user.ID,
		StudentNumber: req.StudentNumber,
		FullName:      req.FullName,
		ClassName:     req.ClassName,
		Active:        true,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to create student")
	}

	// Seed the empty profile now rather than on first login so the record
	// shows up in completion reporting immediately.
	if s.profiles != nil {
		if err := s.profiles.EnsureProfile(ctx, user.ID); err != nil {
			s.logger.Warn("profile provisioning failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	s.logger.Info("student account created",
		zap.String("user_id", user.ID),
		zap.String("student_id", student.ID),
		zap.String("student_number", student.StudentNumber))

	return student, nil
}
