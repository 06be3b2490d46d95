package dto

// AssignStudentRequest attaches one student to a teacher's roster.
type AssignStudentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Notes     string `json:"notes"`
}

// BatchAssignRequest attaches many students in one call. Ids are evaluated
// independently; partial failure is the expected outcome shape.
type BatchAssignRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
	Notes      string   `json:"notes"`
}
