package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/team-ddrawry/ddrawry-server/internal/utils"
)

// InjectTrace assigns every request a trace id and echoes it back in the
// X-Trace-Id header.
func InjectTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := utils.GenerateTraceId()
		c.Set(utils.TraceIdKey, traceId)
		c.Header("X-Trace-Id", traceId)
		c.Next()
	}
}
