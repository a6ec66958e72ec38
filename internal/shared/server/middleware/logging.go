package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
)

// quietPaths are probe endpoints polled by load balancers and scrapers.
var quietPaths = map[string]bool{
	"/api/health": true,
	"/metrics":    true,
}

// Logging emits a structured log per request. Streams are logged once they
// close, so duration covers the whole analysis.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") || quietPaths[c.Request.URL.Path] {
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
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_id":     UserIDFromContext(c),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if id := c.GetString("analysisId"); id != "" {
			fields["analysis_id"] = id
		}
		if kind := c.GetString("analysisKind"); kind != "" {
			fields["analysis_kind"] = kind
		}
		if c.Writer.Status() >= 500 {
			telemetry.Warn("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}

// TagAnalysis attaches an analysis id and kind to the request log line.
func TagAnalysis(c *gin.Context, id, kind string) {
	c.Set("analysisId", id)
	c.Set("analysisKind", kind)
}
