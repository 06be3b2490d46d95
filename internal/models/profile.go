package models

import "time"

// ProfileStatus captures the onboarding review lifecycle of a student profile.
type ProfileStatus string

const (
	ProfileStatusIncomplete ProfileStatus = "INCOMPLETE"
	ProfileStatusPending    ProfileStatus = "PENDING"
	ProfileStatusApproved   ProfileStatus = "APPROVED"
	ProfileStatusRejected   ProfileStatus = "REJECTED"
)

// ProfilePlaceholder is the sentinel an unfilled form field arrives as.
const ProfilePlaceholder = "未知"

// StudentProfile holds the per-student onboarding record. Created empty at
// first student login; field edits belong to the owning student, status
// transitions to a reviewer.
type StudentProfile struct {
	UserID                string        `db:"user_id" json:"user_id"`
	ContactPhone          string        `db:"contact_phone" json:"contact_phone"`
	EmergencyContactName  string        `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactPhone string        `db:"emergency_contact_phone" json:"emergency_contact_phone"`
	HomeAddress           string        `db:"home_address" json:"home_address"`
	Gender                string        `db:"gender" json:"gender"`
	BirthDate             string        `db:"birth_date" json:"birth_date"`
	NativePlace           string        `db:"native_place" json:"native_place"`
	Nation                string        `db:"nation" json:"nation"`
	PoliticalStatus       string        `db:"political_status" json:"political_status"`
	PhotoPath             string        `db:"photo_path" json:"photo_path"`
	Status                ProfileStatus `db:"status" json:"status"`
	CompletionRate        int           `db:"completion_rate" json:"completion_rate"`
	CreatedAt             time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time     `db:"updated_at" json:"updated_at"`
}

// MandatoryProfileFields is the subset whose population (plus approval) opens
// the completion gate.
var MandatoryProfileFields = []string{
	"contact_phone",
	"emergency_contact_name",
	"emergency_contact_phone",
	"home_address",
}

// ProfileChecklist is the ordered field list used for the completion rate.
// Broader than the mandatory set; drives UI progress only, never gating.
var ProfileChecklist = []string{
	"contact_phone",
	"emergency_contact_name",
	"emergency_contact_phone",
	"home_address",
	"gender",
	"birth_date",
	"native_place",
	"nation",
	"political_status",
	"photo_path",
}

// FieldValue returns the raw value for a checklist field name.
func (p *StudentProfile) FieldValue(name string) string {
	switch name {
	case "contact_phone":
		return p.ContactPhone
	case "emergency_contact_name":
		return p.EmergencyContactName
	case "emergency_contact_phone":
		return p.EmergencyContactPhone
	case "home_address":
		return p.HomeAddress
	case "gender":
		return p.Gender
	case "birth_date":
		return p.BirthDate
	case "native_place":
		return p.NativePlace
	case "nation":
		return p.Nation
	case "political_status":
		return p.PoliticalStatus
	case "photo_path":
		return p.PhotoPath
	}
	return ""
}

// Completion is the evaluator output: a UI progress rate plus the gate flag.
type Completion struct {
	IsComplete     bool `json:"is_complete"`
	CompletionRate int  `json:"completion_rate"`
}
