package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bonescan-backend/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	ScopeFilteredKey = "scopeFiltered"
	MatchedRuleKey   = "matchedRule"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"bytes_out":   c.Writer.Size(),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if v, ok := c.Get(ScopeFilteredKey); ok {
			fields["scope_filtered"] = v
		}
		if v, ok := c.Get(MatchedRuleKey); ok {
			fields["matched_rule"] = v
		}
		telemetry.Info("request.complete", fields)
	}
}
