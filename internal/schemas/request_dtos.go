// Package schemas defines the request structures for various operations in the application.
package schemas

// CreateDiaryRequest is a struct that represents a diary finalization request
// Date is required and must be a calendar date in YYYYMMDD or YYYY-MM-DD form
// Mood and Weather accept a numeric code or a case-insensitive name
// Title is required and must be less than 255 characters
type CreateDiaryRequest struct {
	Date    string    `json:"date" validate:"required"`
	Mood    EnumValue `json:"mood" validate:"required"`
	Weather EnumValue `json:"weather" validate:"required"`
	Title   string    `json:"title" validate:"required,max=255"`
	Story   string    `json:"story" validate:"max=10000"`
}

// UpdateDiaryRequest is a struct that represents a diary update request
// The same constraints as CreateDiaryRequest apply
type UpdateDiaryRequest struct {
	Mood    EnumValue `json:"mood" validate:"required"`
	Weather EnumValue `json:"weather" validate:"required"`
	Title   string    `json:"title" validate:"required,max=255"`
	Story   string    `json:"story" validate:"max=10000"`
}

// UpdateDraftRequest is a struct that represents a draft auto-save request
// Every field is optional since drafts are partially filled
type UpdateDraftRequest struct {
	Mood    *EnumValue `json:"mood"`
	Weather *EnumValue `json:"weather"`
	Title   *string    `json:"title" validate:"omitempty,max=255"`
	Story   *string    `json:"story" validate:"omitempty,max=10000"`
}

// CancelDiaryRequest is a struct that represents an editor cancel/confirm request
// Type is "write" when the editor stays on the page and "main" when the user
// returns to the calendar view
type CancelDiaryRequest struct {
	Date string `json:"date" validate:"required"`
	Type string `json:"type" validate:"required,oneof=write main"`
}

// UpdateNicknameRequest is a struct that represents a nickname change request
// Nickname is required and must be between 1 and 20 characters
type UpdateNicknameRequest struct {
	Nickname string `json:"nickname" validate:"required,min=1,max=20"`
}

// UpdateSettingsRequest is a struct that represents a settings update request
// Both flags are optional; absent flags keep their stored value
type UpdateSettingsRequest struct {
	DarkMode     *bool `json:"dark_mode"`
	Notification *bool `json:"notification"`
}
