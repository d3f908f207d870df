package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deltacron/authgate/internal/observability"
)

// Metrics records request counts, durations and in-flight gauge per
// route template.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		m.RequestStarted()

		c.Next()

		m.RequestFinished()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
