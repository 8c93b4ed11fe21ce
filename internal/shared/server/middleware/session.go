package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	sessionIDKey    = "sessionId"
	sessionIDHeader = "X-Session-Id"
)

// Session stores the application session ID of the request in context. The
// :id route parameter wins over the X-Session-Id header.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			id = strings.TrimSpace(c.GetHeader(sessionIDHeader))
		}
		if id != "" {
			c.Set(sessionIDKey, id)
		}
		c.Next()
	}
}

// SessionIDFromContext fetches the session ID set by Session or a handler.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(sessionIDKey)
}
