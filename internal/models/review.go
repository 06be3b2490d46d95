package models

import (
	"time"

	"github.com/lib/pq"
)

// RecordKind enumerates entity types that flow through the review workflow.
type RecordKind string

const (
	RecordKindStudentProfile        RecordKind = "student_profile"
	RecordKindGraduationDestination RecordKind = "graduation_destination"
	RecordKindRewardPunishment      RecordKind = "reward_punishment"
)

// Valid reports whether the kind is supported.
func (k RecordKind) Valid() bool {
	switch k {
	case RecordKindStudentProfile, RecordKindGraduationDestination, RecordKindRewardPunishment:
		return true
	}
	return false
}

// ReviewStatus captures the decision lifecycle shared by all record kinds.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "PENDING"
	ReviewStatusApproved ReviewStatus = "APPROVED"
	ReviewStatusRejected ReviewStatus = "REJECTED"
)

// ReviewDecision is a reviewer's verdict on a pending record.
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "APPROVE"
	DecisionReject  ReviewDecision = "REJECT"
)

// ReviewableRecord is any entity carrying the pending/approved/rejected
// lifecycle. The decision fields (ReviewedBy, ReviewedAt, ReviewComment) are
// unset while pending and set together in a single transition.
type ReviewableRecord struct {
	ID            string         `db:"id" json:"id"`
	Kind          RecordKind     `db:"kind" json:"kind"`
	OwnerID       string         `db:"owner_id" json:"owner_id"`
	Payload       []byte         `db:"payload" json:"payload"`
	ProofFiles    pq.StringArray `db:"proof_files" json:"proof_files"`
	Status        ReviewStatus   `db:"status" json:"status"`
	ReviewedBy    *string        `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewComment *string        `db:"review_comment" json:"review_comment,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// GraduationDestinationPayload is the type-specific payload for
// graduation destination records.
type GraduationDestinationPayload struct {
	Kind         string `json:"kind" validate:"required,oneof=employment further_study enlistment self_employed other"`
	Organization string `json:"organization" validate:"required"`
	Position     string `json:"position"`
	Region       string `json:"region"`
	Remark       string `json:"remark"`
}

// RewardPunishmentPayload is the type-specific payload for reward and
// punishment records.
type RewardPunishmentPayload struct {
	Category    string `json:"category" validate:"required,oneof=reward punishment"`
	Title       string `json:"title" validate:"required"`
	Points      int    `json:"points"`
	Description string `json:"description"`
	OccurredOn  string `json:"occurred_on"`
}

// ReviewFilter constrains record listing queries.
type ReviewFilter struct {
	Kind     RecordKind
	OwnerID  string
	OwnerIn  []string
	Status   []ReviewStatus
	Page     int
	PageSize int
}

// ReviewedEvent is the payload emitted on every decision transition.
type ReviewedEvent struct {
	RecordID  string       `json:"record_id"`
	Kind      RecordKind   `json:"kind"`
	OwnerID   string       `json:"owner_id"`
	Status    ReviewStatus `json:"status"`
	Reviewer  string       `json:"reviewer"`
	DecidedAt time.Time    `json:"decided_at"`
}
