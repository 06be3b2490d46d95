package dto

// UpdateProfileRequest edits the owning student's profile fields. All fields
// optional; only provided ones are written.
type UpdateProfileRequest struct {
	ContactPhone          *string `json:"contact_phone"`
	EmergencyContactName  *string `json:"emergency_contact_name"`
	EmergencyContactPhone *string `json:"emergency_contact_phone"`
	HomeAddress           *string `json:"home_address"`
	Gender                *string `json:"gender"`
	BirthDate             *string `json:"birth_date"`
	NativePlace           *string `json:"native_place"`
	Nation                *string `json:"nation"`
	PoliticalStatus       *string `json:"political_status"`
	PhotoPath             *string `json:"photo_path"`
}
