package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/deltacron/authgate/internal/observability"
)

// RequestID attaches a request ID to each request. An inbound
// X-Request-ID is kept, otherwise a new UUID is generated. The ID is
// stored in the request context for logging and echoed in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := observability.ContextWithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderXRequestID, requestID)
		c.Next()
	}
}
