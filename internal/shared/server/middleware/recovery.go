package middleware

import (
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"bonescan-backend/internal/shared/server/respond"
	"bonescan-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a logged 500 with the usual error body.
// gin's own stack dump is discarded; the stack goes into the log line instead.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		telemetry.Error("panic", map[string]any{
			"request_id": RequestIDFromContext(c),
			"error":      fmt.Sprint(rec),
			"stack":      string(debug.Stack()),
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error")
	})
}
