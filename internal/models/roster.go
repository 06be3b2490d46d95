package models

import "time"

// RosterAssignment links a teacher to a student they may act on.
// Composite-unique on (teacher_id, student_id).
type RosterAssignment struct {
	ID         string    `db:"id" json:"id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Notes      string    `db:"notes" json:"notes"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}

// RosterAssignmentDetail carries the joined student identity for listings.
type RosterAssignmentDetail struct {
	RosterAssignment
	StudentName   string `db:"student_name" json:"student_name"`
	StudentNumber string `db:"student_number" json:"student_number"`
}

// BatchItemResult records the outcome for one id in a batch mutation.
type BatchItemResult struct {
	StudentID string `json:"student_id"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

// BatchAssignResult aggregates a batch roster mutation. Each item is
// evaluated independently; one bad id never aborts the rest.
type BatchAssignResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	PerItem   []BatchItemResult `json:"per_item"`
}
