package dto

import "encoding/json"

// CreateRecordRequest submits a new reviewable record for the owning student.
type CreateRecordRequest struct {
	Kind       string          `json:"kind" validate:"required"`
	Payload    json.RawMessage `json:"payload" validate:"required"`
	ProofFiles []string        `json:"proof_files"`
}

// DecideRequest carries a reviewer's verdict. Comment is mandatory for a
// rejection and optional for an approval; the service enforces it.
type DecideRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	Comment  string `json:"comment"`
}

// RecordQuery filters record listings.
type RecordQuery struct {
	Kind     string `form:"kind"`
	OwnerID  string `form:"owner_id"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
