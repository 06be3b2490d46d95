package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/liu0521613/StudArch-sub001/internal/models"
)

// ReviewRepository persists reviewable records across all kinds.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs the repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a new pending record.
func (r *ReviewRepository) Create(ctx context.Context, record *models.ReviewableRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = models.ReviewStatusPending
	}
	if record.ProofFiles == nil {
		record.ProofFiles = pq.StringArray{}
	}
	const query = `INSERT INTO reviewable_records (id, kind, owner_id, payload, proof_files, status, created_at, updated_at)
		VALUES (:id, :kind, :owner_id, :payload, :proof_files, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create reviewable record: %w", err)
	}
	return nil
}

// GetByID loads one record.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*models.ReviewableRecord, error) {
	const query = `SELECT id, kind, owner_id, payload, proof_files, status, reviewed_by, reviewed_at, review_comment, created_at, updated_at FROM reviewable_records WHERE id = $1 LIMIT 1`
	var record models.ReviewableRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get reviewable record: %w", err)
	}
	return &record, nil
}

// List returns records matching the filter with a total count.
func (r *ReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewableRecord, int, error) {
	baseQuery := `FROM reviewable_records WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}
	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	if len(filter.OwnerIn) > 0 {
		conditions = append(conditions, fmt.Sprintf("owner_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.OwnerIn))
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(statuses))
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, kind, owner_id, payload, proof_files, status, reviewed_by, reviewed_at, review_comment, created_at, updated_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	var records []models.ReviewableRecord
	if err := r.db.SelectContext(ctx, &records, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list reviewable records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reviewable records: %w", err)
	}

	return records, total, nil
}

// UpdateDecision commits a decision in one atomic write. The WHERE clause
// re-checks the pending precondition at write time; sql.ErrNoRows signals the
// record was decided concurrently.
func (r *ReviewRepository) UpdateDecision(ctx context.Context, id string, status models.ReviewStatus, reviewerID string, reviewedAt time.Time, comment *string) error {
	const query = `UPDATE reviewable_records
		SET status = $2, reviewed_by = $3, reviewed_at = $4, review_comment = $5, updated_at = $4
		WHERE id = $1 AND status = $6`
	result, err := r.db.ExecContext(ctx, query, id, status, reviewerID, reviewedAt, comment, models.ReviewStatusPending)
	if err != nil {
		return fmt.Errorf("update review decision: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check decided rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Reopen moves a terminal record back to pending, clearing the decision
// fields together. sql.ErrNoRows signals the record was not terminal.
func (r *ReviewRepository) Reopen(ctx context.Context, id string, reopenedAt time.Time) error {
	const query = `UPDATE reviewable_records
		SET status = $2, reviewed_by = NULL, reviewed_at = NULL, review_comment = NULL, updated_at = $3
		WHERE id = $1 AND status <> $2`
	result, err := r.db.ExecContext(ctx, query, id, models.ReviewStatusPending, reopenedAt)
	if err != nil {
		return fmt.Errorf("reopen reviewable record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reopened rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
