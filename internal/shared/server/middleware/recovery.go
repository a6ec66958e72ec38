package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/seregajade-png/analysis-beauty/internal/shared/server/respond"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 envelope. Once an event stream
// has started the status line is gone, so the connection is only cut.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			streaming := c.Writer.Written()
			telemetry.Error("http.panic", map[string]any{
				"request_id": RequestIDFromContext(c),
				"user_id":    UserIDFromContext(c),
				"method":     c.Request.Method,
				"path":       c.FullPath(),
				"streaming":  streaming,
				"error":      rec,
				"stack":      string(debug.Stack()),
			})
			if streaming {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Внутренняя ошибка сервера", nil)
		}()
		c.Next()
	}
}
