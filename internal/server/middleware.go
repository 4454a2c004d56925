package server

import (
	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// identityMiddleware lifts the authenticated identity out of the request.
// Authentication itself happens upstream; the core trusts whatever identity
// the auth layer hands it.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set(userIDKey, userID)
		}
		c.Next()
	}
}

// currentUserID returns the authenticated user id, empty when anonymous.
func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
