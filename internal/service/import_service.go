package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/liu0521613/StudArch-sub001/internal/dto"
	"github.com/liu0521613/StudArch-sub001/internal/models"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
)

type importJobStore interface {
	Create(ctx context.Context, job *models.BatchImportJob) error
	GetByID(ctx context.Context, id string) (*models.BatchImportJob, error)
	ListByCreator(ctx context.Context, createdBy string, limit int) ([]models.BatchImportJob, error)
	Update(ctx context.Context, job *models.BatchImportJob) error
}

type importStudentStore interface {
	Upsert(ctx context.Context, student *models.Student) error
	FindByNumber(ctx context.Context, number string) (*models.Student, error)
	UpsertCourse(ctx context.Context, course *models.Course) error
}

type importRosterAssigner interface {
	Assign(ctx context.Context, teacherID string, req dto.AssignStudentRequest) (*models.RosterAssignment, error)
}

// RawRow is one unparsed data line of an import file, carrying the original
// row index so that failure reports stay traceable to the source file.
type RawRow struct {
	Index  int
	Fields []string
	Raw    string
}

// ImportService runs batch imports with per-row accounting. One bad row never
// aborts the batch: every row is attempted, failures are collected with their
// original indices, and the job completes as long as the file itself parsed.
type ImportService struct {
	jobs     importJobStore
	students importStudentStore
	roster   importRosterAssigner
	events   EventPublisher
	logger   *zap.Logger
	maxRows  int
}

// NewImportService constructs the processor. maxRows caps a single file;
// zero means the default of 5000.
func NewImportService(jobs importJobStore, students importStudentStore, roster importRosterAssigner, events EventPublisher, logger *zap.Logger, maxRows int) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = NopPublisher{}
	}
	if maxRows <= 0 {
		maxRows = 5000
	}
	return &ImportService{
		jobs:     jobs,
		students: students,
		roster:   roster,
		events:   events,
		logger:   logger,
		maxRows:  maxRows,
	}
}

// Submit parses an uploaded CSV file and registers a pending job for it.
// A file that cannot be parsed at all yields a job in FAILED status with no
// rows; the returned row slice is what Process later consumes.
func (s *ImportService) Submit(ctx context.Context, kind models.ImportKind, createdBy string, file io.Reader) (*models.BatchImportJob, []RawRow, error) {
	if kind != models.ImportKindStudentRoster && kind != models.ImportKindCourseCatalog {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unsupported import kind")
	}
	if createdBy == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "creator is required")
	}

	job := &models.BatchImportJob{
		Kind:      kind,
		CreatedBy: createdBy,
		Status:    models.ImportStatusPending,
		RowErrors: models.ImportRowErrors{},
	}

	rows, parseErr := s.parseCSV(file)
	if parseErr != nil {
		job.Status = models.ImportStatusFailed
		now := time.Now().UTC()
		job.FinishedAt = &now
		job.RowErrors = models.ImportRowErrors{{Row: 0, Error: parseErr.Error()}}
		if err := s.jobs.Create(ctx, job); err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register import job")
		}
		return job, nil, nil
	}
	if len(rows) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "file contains no data rows")
	}
	if len(rows) > s.maxRows {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d row limit", s.maxRows))
	}

	job.TotalRows = len(rows)
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register import job")
	}
	return job, rows, nil
}

func (s *ImportService) parseCSV(file io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	// First line is the header.
	rows := make([]RawRow, 0, len(records)-1)
	for i, record := range records[1:] {
		rows = append(rows, RawRow{
			Index:  i + 1,
			Fields: record,
			Raw:    strings.Join(record, ","),
		})
	}
	return rows, nil
}

// Process applies every row of a submitted job independently. The job ends
// COMPLETED even when every row failed; success_rows + failed_rows always
// equals total_rows at the end. assignTeacherID, when set on a roster import,
// additionally places each imported student on that teacher's roster.
func (s *ImportService) Process(ctx context.Context, job *models.BatchImportJob, rows []RawRow, assignTeacherID string) (*models.BatchImportJob, error) {
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "job is required")
	}
	if job.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "job already finished")
	}

	job.Status = models.ImportStatusProcessing
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start import job")
	}

	rowErrors := models.ImportRowErrors{}
	success := 0
	for _, row := range rows {
		if err := s.applyRow(ctx, job.Kind, row, assignTeacherID); err != nil {
			rowErrors = append(rowErrors, models.ImportRowError{
				Row:     row.Index,
				Error:   appErrors.FromError(err).Message,
				RawData: row.Raw,
			})
			continue
		}
		success++
	}

	now := time.Now().UTC()
	job.SuccessRows = success
	job.FailedRows = len(rowErrors)
	job.RowErrors = rowErrors
	job.Status = models.ImportStatusCompleted
	job.FinishedAt = &now

	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finish import job")
	}

	s.events.Publish(ctx, EventBatchImportCompleted, job)
	s.logger.Info("batch import finished",
		zap.String("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.Int("total", job.TotalRows),
		zap.Int("success", job.SuccessRows),
		zap.Int("failed", job.FailedRows))
	return job, nil
}

func (s *ImportService) applyRow(ctx context.Context, kind models.ImportKind, row RawRow, assignTeacherID string) error {
	switch kind {
	case models.ImportKindStudentRoster:
		parsed, err := parseStudentRow(row.Fields)
		if err != nil {
			return err
		}
		student := &models.Student{
			StudentNumber: parsed.StudentNumber,
			FullName:      parsed.FullName,
			ClassName:     parsed.ClassName,
			Active:        true,
		}
		if err := s.students.Upsert(ctx, student); err != nil {
			return err
		}
		if assignTeacherID != "" && s.roster != nil {
			persisted, err := s.students.FindByNumber(ctx, parsed.StudentNumber)
			if err != nil {
				return err
			}
			if persisted.UserID == nil {
				return errors.New("student has no linked account to roster")
			}
			if _, err := s.roster.Assign(ctx, assignTeacherID, dto.AssignStudentRequest{StudentID: *persisted.UserID}); err != nil {
				return err
			}
		}
		return nil
	case models.ImportKindCourseCatalog:
		parsed, err := parseCourseRow(row.Fields)
		if err != nil {
			return err
		}
		return s.students.UpsertCourse(ctx, parsed)
	}
	return appErrors.Clone(appErrors.ErrValidation, "unsupported import kind")
}

func parseStudentRow(fields []string) (*dto.StudentRosterRow, error) {
	if len(fields) < 2 {
		return nil, errors.New("expected columns: student_number, full_name, class_name")
	}
	row := &dto.StudentRosterRow{
		StudentNumber: strings.TrimSpace(fields[0]),
		FullName:      strings.TrimSpace(fields[1]),
	}
	if len(fields) > 2 {
		row.ClassName = strings.TrimSpace(fields[2])
	}
	if row.StudentNumber == "" {
		return nil, errors.New("student_number is required")
	}
	if row.FullName == "" {
		return nil, errors.New("full_name is required")
	}
	return row, nil
}

func parseCourseRow(fields []string) (*models.Course, error) {
	if len(fields) < 2 {
		return nil, errors.New("expected columns: code, title, credits")
	}
	course := &models.Course{
		Code:  strings.TrimSpace(fields[0]),
		Title: strings.TrimSpace(fields[1]),
	}
	if course.Code == "" {
		return nil, errors.New("code is required")
	}
	if course.Title == "" {
		return nil, errors.New("title is required")
	}
	if len(fields) > 2 && strings.TrimSpace(fields[2]) != "" {
		credits, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("credits must be numeric: %s", fields[2])
		}
		if credits < 0 {
			return nil, errors.New("credits must not be negative")
		}
		course.Credits = credits
	}
	return course, nil
}

// GetJob returns an import job, restricted to its creator unless the actor is
// an admin.
func (s *ImportService) GetJob(ctx context.Context, id string, actor *models.Principal) (*models.BatchImportJob, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to load import job")
	}
	if actor.Role != models.RoleAdmin && job.CreatedBy != actor.ID {
		return nil, appErrors.ErrForbidden
	}
	return job, nil
}

// ListJobs returns the actor's recent jobs.
func (s *ImportService) ListJobs(ctx context.Context, actor *models.Principal, limit int) ([]models.BatchImportJob, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	jobs, err := s.jobs.ListByCreator(ctx, actor.ID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaboratorUnavailable.Code, appErrors.ErrCollaboratorUnavailable.Status, "failed to list import jobs")
	}
	return jobs, nil
}
