package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/team-ddrawry/ddrawry-server/internal/utils"
)

// LogRequest logs method and path of every incoming request with its trace id.
func LogRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		message := "Request received: " + c.Request.Method + " " + c.Request.URL.Path
		utils.LogMessageWithFields(c, "info", message)
		c.Next()
	}
}
