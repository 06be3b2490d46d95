package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/liu0521613/StudArch-sub001/internal/models"
)

// ImportJobRepository persists batch import jobs and their row accounting.
type ImportJobRepository struct {
	db *sqlx.DB
}

// NewImportJobRepository constructs the repository.
func NewImportJobRepository(db *sqlx.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db}
}

// Create inserts a new job.
func (r *ImportJobRepository) Create(ctx context.Context, job *models.BatchImportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ImportStatusPending
	}
	if job.RowErrors == nil {
		job.RowErrors = models.ImportRowErrors{}
	}
	const query = `INSERT INTO batch_import_jobs (id, kind, total_rows, success_rows, failed_rows, status, row_errors, created_by, created_at)
		VALUES (:id, :kind, :total_rows, :success_rows, :failed_rows, :status, :row_errors, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create import job: %w", err)
	}
	return nil
}

// GetByID loads one job.
func (r *ImportJobRepository) GetByID(ctx context.Context, id string) (*models.BatchImportJob, error) {
	const query = `SELECT id, kind, total_rows, success_rows, failed_rows, status, row_errors, created_by, created_at, finished_at FROM batch_import_jobs WHERE id = $1 LIMIT 1`
	var job models.BatchImportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get import job: %w", err)
	}
	return &job, nil
}

// ListByCreator returns the jobs submitted by one user, newest first.
func (r *ImportJobRepository) ListByCreator(ctx context.Context, createdBy string, limit int) ([]models.BatchImportJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT id, kind, total_rows, success_rows, failed_rows, status, row_errors, created_by, created_at, finished_at FROM batch_import_jobs WHERE created_by = $1 ORDER BY created_at DESC LIMIT %d`, limit)
	var jobs []models.BatchImportJob
	if err := r.db.SelectContext(ctx, &jobs, query, createdBy); err != nil {
		return nil, fmt.Errorf("list import jobs: %w", err)
	}
	return jobs, nil
}

// Update writes counters, status and row errors. Terminal jobs are never
// rewritten; the WHERE clause keeps a finished job immutable.
func (r *ImportJobRepository) Update(ctx context.Context, job *models.BatchImportJob) error {
	const query = `UPDATE batch_import_jobs
		SET total_rows = :total_rows, success_rows = :success_rows, failed_rows = :failed_rows,
		    status = :status, row_errors = :row_errors, finished_at = :finished_at
		WHERE id = :id AND status NOT IN ('COMPLETED', 'FAILED')`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("update import job: %w", err)
	}
	return nil
}
