package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liu0521613/StudArch-sub001/internal/dto"
	"github.com/liu0521613/StudArch-sub001/internal/models"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
)

type importJobStoreStub struct {
	jobs    map[string]*models.BatchImportJob
	nextID  int
	updates int
}

func newImportJobStoreStub() *importJobStoreStub {
	return &importJobStoreStub{jobs: make(map[string]*models.BatchImportJob)}
}

func (s *importJobStoreStub) Create(ctx context.Context, job *models.BatchImportJob) error {
	s.nextID++
	job.ID = fmt.Sprintf("job-%d", s.nextID)
	copy := *job
	s.jobs[job.ID] = &copy
	return nil
}

func (s *importJobStoreStub) GetByID(ctx context.Context, id string) (*models.BatchImportJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *job
	return &copy, nil
}

func (s *importJobStoreStub) ListByCreator(ctx context.Context, createdBy string, limit int) ([]models.BatchImportJob, error) {
	var result []models.BatchImportJob
	for _, job := range s.jobs {
		if job.CreatedBy == createdBy {
			result = append(result, *job)
		}
	}
	return result, nil
}

func (s *importJobStoreStub) Update(ctx context.Context, job *models.BatchImportJob) error {
	s.updates++
	copy := *job
	s.jobs[job.ID] = &copy
	return nil
}

type studentStoreStub struct {
	students map[string]*models.Student
	courses  map[string]*models.Course
}

func newStudentStoreStub() *studentStoreStub {
	return &studentStoreStub{
		students: make(map[string]*models.Student),
		courses:  make(map[string]*models.Course),
	}
}

func (s *studentStoreStub) Upsert(ctx context.Context, student *models.Student) error {
	existing, ok := s.students[student.StudentNumber]
	if ok {
		student.UserID = existing.UserID
	}
	copy := *student
	s.students[student.StudentNumber] = &copy
	return nil
}

func (s *studentStoreStub) FindByNumber(ctx context.Context, number string) (*models.Student, error) {
	student, ok := s.students[number]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *student
	return &copy, nil
}

func (s *studentStoreStub) UpsertCourse(ctx context.Context, course *models.Course) error {
	copy := *course
	s.courses[course.Code] = &copy
	return nil
}

type assignerStub struct {
	assigned [][2]string
}

func (a *assignerStub) Assign(ctx context.Context, teacherID string, req dto.AssignStudentRequest) (*models.RosterAssignment, error) {
	a.assigned = append(a.assigned, [2]string{teacherID, req.StudentID})
	return &models.RosterAssignment{TeacherID: teacherID, StudentID: req.StudentID}, nil
}

const rosterCSV = "student_number,full_name,class_name\n" +
	"S001,Alice Zhang,3-A\n" +
	"S002,Bob Li,3-A\n"

func newImportService(jobs *importJobStoreStub, students *studentStoreStub) *ImportService {
	return NewImportService(jobs, students, nil, nil, nil, 0)
}

func TestSubmitRegistersPendingJob(t *testing.T) {
	jobs := newImportJobStoreStub()
	svc := newImportService(jobs, newStudentStoreStub())

	job, rows, err := svc.Submit(context.Background(), models.ImportKindStudentRoster, "admin-1", strings.NewReader(rosterCSV))
	require.NoError(t, err)
	require.Equal(t, models.ImportStatusPending, job.Status)
	require.Equal(t, 2, job.TotalRows)
	require.Len(t, rows, 2)
	require.Equal(t, 1, rows[0].Index)
	require.Equal(t, 2, rows[1].Index)
}

func TestSubmitRejectsUnknownKind(t *testing.T) {
	svc := newImportService(newImportJobStoreStub(), newStudentStoreStub())

	_, _, err := svc.Submit(context.Background(), "grades", "admin-1", strings.NewReader(rosterCSV))
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestSubmitEmptyFileRejected(t *testing.T) {
	svc := newImportService(newImportJobStoreStub(), newStudentStoreStub())

	_, _, err := svc.Submit(context.Background(), models.ImportKindStudentRoster, "admin-1", strings.NewReader("student_number,full_name\n"))
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestSubmitOversizeFileRejected(t *testing.T) {
	jobs := newImportJobStoreStub()
	svc := NewImportService(jobs, newStudentStoreStub(), nil, nil, nil, 1)

	_, _, err := svc.Submit(context.Background(), models.ImportKindStudentRoster, "admin-1", strings.NewReader(rosterCSV))
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestSubmitMalformedFileYieldsFailedJob(t *testing.T) {
	jobs := newImportJobStoreStub()
	svc := newImportService(jobs, newStudentStoreStub())

	// unclosed quote makes the whole file unparseable
	job, rows, err := svc.Submit(context.Background(), models.ImportKindStudentRoster, "admin-1", strings.NewReader("a,b\n\"broken,row\n"))
	require.NoError(t, err)
	require.Nil(t, rows)
	require.Equal(t, models.ImportStatusFailed, job.Status)
	require.NotNil(t, job.FinishedAt)
	require.Len(t, job.RowErrors, 1)
	require.Equal(t, 0, job.RowErrors[0].Row)
}

func TestProcessCountsAlwaysReconcile(t *testing.T) {
	jobs := newImportJobStoreStub()
	svc := newImportService(jobs, newStudentStoreStub())

	// row 2 is missing its full_name
	file := "student_number,full_name\nS001,Alice\nS002,\nS003,Carol\n"
	job, rows, err := svc.Submit(context.Background(), models.ImportKindStudentRoster, "admin-1", strings.NewReader(file))
	require.NoError(t, err)

	done, err := svc.Process(context.Background(), job, rows, "")
	require.NoError(t, err)
	require.Equal(t, models.ImportStatusCompleted, done.Status)
	require.Equal(t, 3, done.TotalRows)
	require.Equal(t, 2, done.SuccessRows)
	require.Equal(t, 1, done.FailedRows)
	require.Equal(t, done.TotalRows, done.SuccessRows+done.FailedRows)
	require.NotNil(t, done.FinishedAt)
}

func TestProcessKeepsOriginalRowIndices(t *testing.T) {
	jobs := newImportJobStoreStub()
	svc := newImportService(jobs, newStudentStoreStub())

	file := "student_number,full_name\n,missing-number\nS002,Bob\n,also-missing\n"
	job, rows, err := svc.Submit(context.Background(), models.ImportKindStudentRoster, "admin-1", strings.NewReader(file))
	require.NoError(t, err)

	done, err := svc.Process(context.Background(), job, rows, "")
	require.NoError(t, err)
	require.Len(t, done.RowErrors, 2)
	require.Equal(t, 1, done.RowErrors[0].Row)
	require.Equal(t, 3, done.RowErrors[1].Row)
	require.Contains(t, done.RowErrors[0].Error, "student_number is required")
}

func TestProcessAllRowsFailedStillCompletes(t *testing.T) {
	jobs := newImportJobStoreStub()
	events := &eventRecorder{}
	svc := NewImportService(jobs, newStudentStoreStub(), nil, events, nil, 0)

	file := "student_number,full_name\n,\n,\n"
	job, rows, err := svc.Submit(context.Background(), models.ImportKindStudentRoster, "admin-1", strings.NewReader(file))
	require.NoError(t, err)

	done, err := svc.Process(context.Background(), job, rows, "")
	require.NoError(t, err)
	require.Equal(t, models.ImportStatusCompleted, done.Status)
	require.Equal(t, 0, done.SuccessRows)
	require.Equal(t, 2, done.FailedRows)
	require.Equal(t, []string{EventBatchImportCompleted}, events.events)
}

func TestProcessTerminalJobConflicts(t *testing.T) {
	jobs := newImportJobStoreStub()
	svc := newImportService(jobs, newStudentStoreStub())

	job, rows, err := svc.Submit(context.Background(), models.ImportKindStudentRoster, "admin-1", strings.NewReader(rosterCSV))
	require.NoError(t, err)
	_, err = svc.Process(context.Background(), job, rows, "")
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), job, rows, "")
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
}

func TestProcessCourseCatalogRows(t *testing.T) {
	jobs := newImportJobStoreStub()
	students := newStudentStoreStub()
	svc := newImportService(jobs, students)

	file := "code,title,credits\nMATH101,Calculus,4\nPHYS101,Physics,abc\nCHEM101,Chemistry,-1\n"
	job, rows, err := svc.Submit(context.Background(), models.ImportKindCourseCatalog, "admin-1", strings.NewReader(file))
	require.NoError(t, err)

	done, err := svc.Process(context.Background(), job, rows, "")
	require.NoError(t, err)
	require.Equal(t, 1, done.SuccessRows)
	require.Equal(t, 2, done.FailedRows)
	require.Contains(t, students.courses, "MATH101")
	require.Contains(t, done.RowErrors[0].Error, "credits must be numeric")
	require.Contains(t, done.RowErrors[1].Error, "credits must not be negative")
}

func TestProcessAssignsLinkedStudentsToRoster(t *testing.T) {
	jobs := newImportJobStoreStub()
	students := newStudentStoreStub()
	assigner := &assignerStub{}
	svc := NewImportService(jobs, students, assigner, nil, nil, 0)

	// S001 already has a linked account, S002 does not
	userID := "u-alice"
	students.students["S001"] = &models.Student{StudentNumber: "S001", FullName: "Alice", UserID: &userID}

	job, rows, err := svc.Submit(context.Background(), models.ImportKindStudentRoster, "t1", strings.NewReader(rosterCSV))
	require.NoError(t, err)

	done, err := svc.Process(context.Background(), job, rows, "t1")
	require.NoError(t, err)
	require.Equal(t, 1, done.SuccessRows)
	require.Equal(t, 1, done.FailedRows)
	require.Equal(t, [][2]string{{"t1", "u-alice"}}, assigner.assigned)
	require.Contains(t, done.RowErrors[0].Error, "no linked account")
	require.Equal(t, 2, done.RowErrors[0].Row)
}

func TestGetJobRestrictedToCreator(t *testing.T) {
	jobs := newImportJobStoreStub()
	svc := newImportService(jobs, newStudentStoreStub())

	job, _, err := svc.Submit(context.Background(), models.ImportKindStudentRoster, "t1", strings.NewReader(rosterCSV))
	require.NoError(t, err)

	_, err = svc.GetJob(context.Background(), job.ID, &models.Principal{ID: "t2", Role: models.RoleTeacher})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))

	got, err := svc.GetJob(context.Background(), job.ID, &models.Principal{ID: "t1", Role: models.RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, job.ID, got.ID)

	// admins read any job
	got, err = svc.GetJob(context.Background(), job.ID, admin())
	require.NoError(t, err)
	require.Equal(t, job.ID, got.ID)
}
