package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/team-ddrawry/ddrawry-server/internal/schemas"
)

// CurrentUserId returns the authenticated user's id placed in the context by
// the auth middleware.
func CurrentUserId(ctx *gin.Context) (uuid.UUID, bool) {
	value, exists := ctx.Get(UserIdKey)
	if !exists {
		return uuid.Nil, false
	}
	userId, ok := value.(uuid.UUID)
	return userId, ok
}

// WriteAndLogResponse encodes the response object to JSON and writes it to the HTTP response.
// It also sets the provided status code.
func WriteAndLogResponse(ctx *gin.Context, response interface{}, statusCode int) {
	LogMessageWithFields(ctx, "info", "Returning response")
	ctx.JSON(statusCode, response)
}

// WriteAndLogError logs the provided error and sends an error response with the specified status code and error details.
func WriteAndLogError(ctx *gin.Context, customErr *schemas.CustomError, statusCode int, err error) {
	LogMessageWithFields(ctx, "error", "Error occurred: "+err.Error())
	LogMessageWithFields(ctx, "error", "Returning "+customErr.Code+" / "+customErr.Message)
	errorDto := &schemas.ErrorDTO{
		Error: *customErr,
	}
	ctx.JSON(statusCode, errorDto)
}
