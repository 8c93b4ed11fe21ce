package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"jobapply-backend/internal/shared/metrics"
	"jobapply-backend/internal/shared/server/respond"
	"jobapply-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 error envelope. A panic raised
// after the response started streaming only aborts the request.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			metrics.IncPanic(route)
			telemetry.Error("panic", map[string]any{
				"request_id": RequestIDFromContext(c),
				"session_id": SessionIDFromContext(c),
				"route":      route,
				"method":     c.Request.Method,
				"error":      rec,
				"stack":      string(debug.Stack()),
			})

			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
