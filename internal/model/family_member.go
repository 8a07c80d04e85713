package model

type FamilyMember struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	DOB          string `json:"dob"`
	Notes        string `json:"notes"`
}

// FamilyMemberInput carries member attributes for create and update. On
// update, empty values keep the stored value.
type FamilyMemberInput struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	DOB          string `json:"dob"`
	Notes        string `json:"notes"`
}
