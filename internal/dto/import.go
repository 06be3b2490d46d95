package dto

// StudentRosterRow is one parsed line of a roster import file.
type StudentRosterRow struct {
	StudentNumber string `json:"student_number"`
	FullName      string `json:"full_name"`
	ClassName     string `json:"class_name"`
}

// CourseCatalogRow is one parsed line of a course catalog import file.
type CourseCatalogRow struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Credits string `json:"credits"`
}
