package schemas

// CustomError is the error payload returned to clients.
// Code is a stable identifier the frontend can match on, Message is a
// human-readable explanation.
type CustomError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	// BadRequest is returned when the request body or query parameters are invalid.
	BadRequest = &CustomError{
		Code:    "ERR-001",
		Message: "The request is invalid. Please check the request body and try again.",
	}
	// InvalidDate is returned when a date parameter cannot be parsed.
	InvalidDate = &CustomError{
		Code:    "ERR-002",
		Message: "The date is invalid. Expected format is YYYYMMDD or YYYY-MM-DD.",
	}
	// InvalidEnumValue is returned when a mood or weather value is not recognized.
	InvalidEnumValue = &CustomError{
		Code:    "ERR-003",
		Message: "The mood or weather value is invalid.",
	}
	// UserNotFound is returned when the authenticated user no longer exists.
	UserNotFound = &CustomError{
		Code:    "ERR-004",
		Message: "The user was not found.",
	}
	// DiaryNotFound is returned when the requested diary does not exist or is deleted.
	DiaryNotFound = &CustomError{
		Code:    "ERR-005",
		Message: "The diary was not found.",
	}
	// DraftNotFound is returned when no active draft exists for the requested date or id.
	DraftNotFound = &CustomError{
		Code:    "ERR-006",
		Message: "The draft was not found.",
	}
	// NicknameTaken is returned when another user already owns the requested nickname.
	NicknameTaken = &CustomError{
		Code:    "ERR-007",
		Message: "The nickname is already in use. Please try another nickname.",
	}
	// DiaryAlreadyExists is returned when a finalized diary already exists for the date.
	DiaryAlreadyExists = &CustomError{
		Code:    "ERR-008",
		Message: "A diary already exists for this date.",
	}
	// Unauthorized is returned when no valid session accompanies the request.
	Unauthorized = &CustomError{
		Code:    "ERR-010",
		Message: "The request is unauthorized. Please login to your account.",
	}
	// TokenExpired is returned when a well-formed session token is past its expiry.
	TokenExpired = &CustomError{
		Code:    "ERR-011",
		Message: "The session token is expired. Please refresh your session.",
	}
	// InvalidToken is returned when a session token is malformed or has a bad signature.
	InvalidToken = &CustomError{
		Code:    "ERR-012",
		Message: "The session token is invalid. Please login again.",
	}
	// ProviderError is returned when the Kakao API answers with a non-200 status.
	ProviderError = &CustomError{
		Code:    "ERR-013",
		Message: "The identity provider could not complete the request.",
	}
	// DatabaseError is returned when a database operation fails unexpectedly.
	DatabaseError = &CustomError{
		Code:    "ERR-020",
		Message: "A database error occurred. Please try again later.",
	}
	// InternalServerError is the last-resort error for uncategorized faults.
	InternalServerError = &CustomError{
		Code:    "ERR-021",
		Message: "An internal error occurred. Please try again later.",
	}
)
