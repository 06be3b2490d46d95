package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/liu0521613/StudArch-sub001/internal/dto"
	"github.com/liu0521613/StudArch-sub001/internal/models"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
)

type rosterRepository interface {
	Exists(ctx context.Context, teacherID, studentID string) (bool, error)
	Create(ctx context.Context, assignment *models.RosterAssignment) (bool, error)
	Delete(ctx context.Context, teacherID, studentID string) (bool, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.RosterAssignmentDetail, error)
	StudentIDs(ctx context.Context, teacherID string) ([]string, error)
}

// rosterStudentReader looks up the student's user account. Roster entries
// are keyed by user id so the relation lines up with record ownership.
type rosterStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// RosterService maintains the teacher-student authorization relation. It is
// the single enforcement point deciding whether a teacher may act on a
// student, regardless of how the student id was obtained.
type RosterService struct {
	repo      rosterRepository
	students  rosterStudentReader
	events    EventPublisher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRosterService constructs the service.
func NewRosterService(repo rosterRepository, students rosterStudentReader, events EventPublisher, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = NopPublisher{}
	}
	return &RosterService{repo: repo, students: students, events: events, validator: validate, logger: logger}
}

// Assign attaches one student to a teacher's roster. Assigning an already
// assigned student is a no-op success so batch retries stay idempotent.
func (s *RosterService) Assign(ctx context.Context, teacherID string, req dto.AssignStudentRequest) (*models.RosterAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	user, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to load student")
	}
	if user.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only student accounts can be rostered")
	}

	assignment := &models.RosterAssignment{
		TeacherID: teacherID,
		StudentID: req.StudentID,
		Notes:     req.Notes,
	}
	inserted, err := s.repo.Create(ctx, assignment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	if inserted {
		s.events.Publish(ctx, EventRosterChanged, map[string]interface{}{
			"teacher_id": teacherID,
			"student_id": req.StudentID,
			"change":     "assigned",
		})
	}
	return assignment, nil
}

// BatchAssign evaluates every student id independently: one invalid id never
// aborts the others.
func (s *RosterService) BatchAssign(ctx context.Context, teacherID string, req dto.BatchAssignRequest) (*models.BatchAssignResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}

	result := &models.BatchAssignResult{PerItem: make([]models.BatchItemResult, 0, len(req.StudentIDs))}
	for _, studentID := range req.StudentIDs {
		item := models.BatchItemResult{StudentID: studentID}
		if _, err := s.Assign(ctx, teacherID, dto.AssignStudentRequest{StudentID: studentID, Notes: req.Notes}); err != nil {
			item.Error = appErrors.FromError(err).Message
			result.Failed++
		} else {
			item.OK = true
			result.Succeeded++
		}
		result.PerItem = append(result.PerItem, item)
	}
	return result, nil
}

// Unassign removes the pair from the roster. Removing a non-existent
// assignment is a no-op success. Removal never cascades into student data.
func (s *RosterService) Unassign(ctx context.Context, teacherID, studentID string) error {
	removed, err := s.repo.Delete(ctx, teacherID, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove assignment")
	}
	if removed {
		s.events.Publish(ctx, EventRosterChanged, map[string]interface{}{
			"teacher_id": teacherID,
			"student_id": studentID,
			"change":     "unassigned",
		})
	}
	return nil
}

// IsAuthorized reports whether the teacher may act on the student.
func (s *RosterService) IsAuthorized(ctx context.Context, teacherID, studentID string) (bool, error) {
	ok, err := s.repo.Exists(ctx, teacherID, studentID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to check roster")
	}
	return ok, nil
}

// Authorize is IsAuthorized with the taxonomy error attached: callers that
// mutate on behalf of a teacher deny with Forbidden, not a generic error.
func (s *RosterService) Authorize(ctx context.Context, teacherID, studentID string) error {
	ok, err := s.IsAuthorized(ctx, teacherID, studentID)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "student is not on this teacher's roster")
	}
	return nil
}

// ListAssignments returns the teacher's roster with student identity.
func (s *RosterService) ListAssignments(ctx context.Context, teacherID string) ([]models.RosterAssignmentDetail, error) {
	assignments, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to list roster")
	}
	return assignments, nil
}

// StudentIDs returns the roster as a plain id slice for scoped filters.
func (s *RosterService) StudentIDs(ctx context.Context, teacherID string) ([]string, error) {
	ids, err := s.repo.StudentIDs(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to list roster ids")
	}
	return ids, nil
}
