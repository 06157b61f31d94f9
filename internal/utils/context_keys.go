package utils

// Keys used to store values in the gin context. Plain strings so they work
// with both gin.Context.Set and context.Context.Value lookups.
const (
	// UserIdKey is the context key for the authenticated user's id, set by the session middleware.
	UserIdKey = "userId"

	// TraceIdKey is the context key for the per-request trace id.
	TraceIdKey = "traceId"

	// SanitizedPayloadKey is the context key for the validated and sanitized request body.
	SanitizedPayloadKey = "sanitizedPayload"
)
