package schemas

// ErrorDTO is a struct that represents an error response
// Error is the custom error, see CustomError
type ErrorDTO struct {
	Error CustomError `json:"error"`
}

// TokenPairDTO is a struct that represents a session token response
// AccessToken is the short-lived token used for authorization
// RefreshToken is the long-lived token used to mint new access tokens
type TokenPairDTO struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// LoginResultDTO is a struct that represents a completed Kakao login
// Nickname is the nickname fetched from the provider profile
type LoginResultDTO struct {
	Message  string `json:"message"`
	Nickname string `json:"nickname"`
}

// ResolveDTO is a struct that represents the outcome of the resolve-by-date check
// IsExist is true when a finalized diary exists for the date
// Id is the diary id when IsExist is true, otherwise the active draft id
type ResolveDTO struct {
	Date    string `json:"date"`
	IsExist bool   `json:"is_exist"`
	Id      string `json:"id"`
}

// DiaryDTO is a struct that represents a full diary response
// Image is the URL of the current image, empty when none is attached
type DiaryDTO struct {
	Id       string `json:"id"`
	Date     string `json:"date"`
	Nickname string `json:"nickname"`
	Mood     int    `json:"mood"`
	Weather  int    `json:"weather"`
	Title    string `json:"title"`
	Image    string `json:"image"`
	Story    string `json:"story"`
	Like     bool   `json:"like"`
}

// DiaryEditDTO is a struct that represents a diary opened for editing
// TempId is the id of the freshly spawned draft to continue editing against
type DiaryEditDTO struct {
	Diary  DiaryDTO `json:"data"`
	TempId string   `json:"temp_id"`
}

// DraftDTO is a struct that represents a draft response
// All content fields may be empty since drafts are partially filled
type DraftDTO struct {
	Id       string `json:"id"`
	DiaryId  string `json:"diary_id,omitempty"`
	Date     string `json:"date"`
	Nickname string `json:"nickname"`
	Mood     *int   `json:"mood"`
	Weather  *int   `json:"weather"`
	Title    string `json:"title"`
	Story    string `json:"story"`
}

// DiaryIdDTO is a struct that represents a bare diary or draft id response
type DiaryIdDTO struct {
	Id string `json:"id"`
}

// LikeDTO is a struct that represents the result of a like toggle
// Bookmark is the new like state
type LikeDTO struct {
	Id       string `json:"id"`
	Bookmark bool   `json:"bookmark"`
}

// DiaryListEntryDTO is a struct that represents one row of search, like and
// main views
type DiaryListEntryDTO struct {
	Id       string `json:"id"`
	Date     string `json:"date"`
	Title    string `json:"title,omitempty"`
	Image    string `json:"image"`
	Bookmark bool   `json:"bookmark"`
}

// NicknameDTO is a struct that represents a nickname update response
type NicknameDTO struct {
	Nickname string `json:"nickname"`
}

// SettingsDTO is a struct that represents the user's preference flags
type SettingsDTO struct {
	DarkMode     bool `json:"dark_mode"`
	Notification bool `json:"notification"`
}

// PaginatedResponse is a struct that represents a paginated response
// Records is the records of the response
// Pagination is the pagination of the response
type PaginatedResponse struct {
	Records    interface{} `json:"records"`
	Pagination interface{} `json:"pagination"`
}

// Pagination is a struct that represents a pagination
// Offset is the given offset of the pagination
// Limit is the given limit of the pagination
// Records is the total records of the pagination
type Pagination struct {
	Offset  int `json:"offset"`
	Limit   int `json:"limit"`
	Records int `json:"records"`
}

// MetadataDTO is a struct that represents the version response of the root route
type MetadataDTO struct {
	ApiVersion string `json:"apiVersion"`
	ApiName    string `json:"apiName"`
}
