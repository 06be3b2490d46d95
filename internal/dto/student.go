package dto

// CreateStudentRequest provisions a student master record together with the
// login account it belongs to.
type CreateStudentRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	FullName      string `json:"full_name" validate:"required"`
	StudentNumber string `json:"student_number" validate:"required"`
	ClassName     string `json:"class_name" validate:"required"`
}
