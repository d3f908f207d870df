package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deltacron/authgate/internal/observability"
)

// Logging logs one structured line per request.
func Logging(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		requestID := observability.RequestIDFromContext(c.Request.Context())

		logger.Info("http request",
			observability.String("method", c.Request.Method),
			observability.String("path", c.Request.URL.Path),
			observability.String("query", c.Request.URL.RawQuery),
			observability.Int("status", c.Writer.Status()),
			observability.Int("size", c.Writer.Size()),
			observability.Duration("duration", duration),
			observability.String("client_ip", c.ClientIP()),
			observability.String("user_agent", c.Request.UserAgent()),
			observability.String("request_id", requestID),
		)
	}
}
