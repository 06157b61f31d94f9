package utils

const (
	// DiaryIdKey is the key for diary ID used in routing parameters.
	DiaryIdKey = "diaryId"

	// TempIdKey is the key for draft ID used in routing parameters.
	TempIdKey = "tempId"

	// DateParamKey is the key for the calendar date used in query parameters.
	DateParamKey = "date"

	// EditParamKey is the key for the edit-mode flag used in query parameters.
	EditParamKey = "edit"

	// KeywordParamKey is the key for the search keyword used in query parameters.
	KeywordParamKey = "keyword"

	// ViewTypeParamKey is the key for the main view type used in query parameters.
	ViewTypeParamKey = "type"

	// CodeParamKey is the key for the OAuth authorization code used in query parameters.
	CodeParamKey = "code"

	// OffsetParamKey is the key for offset used in pagination query parameters.
	OffsetParamKey = "offset"

	// LimitParamKey is the key for limit used in pagination query parameters.
	LimitParamKey = "limit"
)
