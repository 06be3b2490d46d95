package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ImportKind enumerates the supported batch ingestion targets.
type ImportKind string

const (
	ImportKindStudentRoster ImportKind = "student_roster"
	ImportKindCourseCatalog ImportKind = "course_catalog"
)

// ImportStatus captures the batch job lifecycle. COMPLETED means every row
// was attempted, however many failed; FAILED is reserved for a job that
// could not start at all.
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "PENDING"
	ImportStatusProcessing ImportStatus = "PROCESSING"
	ImportStatusCompleted  ImportStatus = "COMPLETED"
	ImportStatusFailed     ImportStatus = "FAILED"
)

// ImportRowError records one failed row with its original index.
type ImportRowError struct {
	Row     int    `json:"row"`
	Error   string `json:"error"`
	RawData string `json:"raw_data"`
}

// ImportRowErrors is persisted as JSONB.
type ImportRowErrors []ImportRowError

// Value marshals row errors for persistence.
func (e ImportRowErrors) Value() (driver.Value, error) {
	if e == nil {
		e = ImportRowErrors{}
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal import row errors: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the slice.
func (e *ImportRowErrors) Scan(value interface{}) error {
	if value == nil {
		*e = ImportRowErrors{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ImportRowErrors", value)
	}
	if len(data) == 0 {
		*e = ImportRowErrors{}
		return nil
	}
	if err := json.Unmarshal(data, e); err != nil {
		return fmt.Errorf("unmarshal import row errors: %w", err)
	}
	return nil
}

// BatchImportJob tracks one batch submission with per-row accounting.
// Invariant: SuccessRows + FailedRows <= TotalRows at every point, equal once
// the job reaches COMPLETED. Never mutated after a terminal status.
type BatchImportJob struct {
	ID          string          `db:"id" json:"id"`
	Kind        ImportKind      `db:"kind" json:"kind"`
	TotalRows   int             `db:"total_rows" json:"total_rows"`
	SuccessRows int             `db:"success_rows" json:"success_rows"`
	FailedRows  int             `db:"failed_rows" json:"failed_rows"`
	Status      ImportStatus    `db:"status" json:"status"`
	RowErrors   ImportRowErrors `db:"row_errors" json:"row_errors"`
	CreatedBy   string          `db:"created_by" json:"created_by"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	FinishedAt  *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
}

// Terminal reports whether the job reached a final status.
func (j *BatchImportJob) Terminal() bool {
	return j.Status == ImportStatusCompleted || j.Status == ImportStatusFailed
}
