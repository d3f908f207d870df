package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deltacron/authgate/internal/observability"
	"github.com/deltacron/authgate/internal/ratelimit"
)

// RateLimit applies a per-client-IP rate limit. Intended for the
// credential endpoints only; profile routes are not limited.
func RateLimit(limiter ratelimit.Limiter, logger observability.Logger, metrics *observability.Metrics) gin.HandlerFunc {
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		result, err := limiter.Allow(c.Request.Context(), clientIP)
		if err != nil {
			// Fail-closed limiter with an unreachable backend.
			logger.Error("rate limiter unavailable",
				observability.String("client_ip", clientIP),
				observability.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "external_service_error",
				"message": "rate limiter unavailable",
			})
			return
		}

		if !result.Allowed {
			route := c.FullPath()
			if metrics != nil {
				metrics.RecordRateLimitHit(route)
			}
			logger.Warn("rate limit exceeded",
				observability.String("client_ip", clientIP),
				observability.String("route", route),
			)

			c.Header(HeaderRetryAfter, retryAfterSeconds(result.RetryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "too many requests, slow down",
			})
			return
		}

		c.Next()
	}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
