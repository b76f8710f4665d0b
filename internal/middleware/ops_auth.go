package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "leavedesk/internal/errors"
)

// OpsKeyMiddleware guards operational endpoints with the X-API-Key header.
// An empty apiKey leaves the endpoints open.
func OpsKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		key := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			abortWithError(c, apperrors.ErrInvalidAPIKey)
			return
		}
		c.Next()
	}
}
