package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deltacron/authgate/internal/config"
)

// corsHeaders holds pre-computed CORS header values.
type corsHeaders struct {
	allowOrigins     map[string]bool
	wildcardPatterns []string
	allowAllOrigins  bool
	allowMethods     string
	allowHeaders     string
	maxAge           string
	allowCredentials bool
}

func newCORSHeaders(cfg *config.CORSConfig) *corsHeaders {
	methods := cfg.AllowMethods
	if len(methods) == 0 {
		methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	}
	headers := cfg.AllowHeaders
	if len(headers) == 0 {
		headers = []string{"Origin", "Content-Type", "Accept", "Authorization", HeaderXRequestID}
	}

	h := &corsHeaders{
		allowOrigins:     make(map[string]bool),
		allowMethods:     strings.Join(methods, ", "),
		allowHeaders:     strings.Join(headers, ", "),
		allowCredentials: cfg.AllowCredentials,
	}
	if cfg.MaxAge > 0 {
		h.maxAge = strconv.Itoa(int(time.Duration(cfg.MaxAge).Seconds()))
	}

	for _, origin := range cfg.AllowOrigins {
		switch {
		case origin == "*":
			h.allowAllOrigins = true
		case strings.HasPrefix(origin, "*."):
			h.wildcardPatterns = append(h.wildcardPatterns, origin)
		default:
			h.allowOrigins[origin] = true
		}
	}

	return h
}

func (h *corsHeaders) isOriginAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	if h.allowAllOrigins || h.allowOrigins[origin] {
		return true
	}
	for _, pattern := range h.wildcardPatterns {
		if matchWildcardOrigin(origin, pattern) {
			return true
		}
	}
	return false
}

// matchWildcardOrigin checks an origin against a "*.example.com" pattern.
func matchWildcardOrigin(origin, pattern string) bool {
	if !strings.HasPrefix(pattern, "*.") {
		return false
	}
	suffix := pattern[1:]

	host := origin
	if idx := strings.Index(host, "://"); idx != -1 {
		host = host[idx+3:]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}

	return len(host) > len(suffix) && strings.HasSuffix(host, suffix)
}

// CORS handles cross-origin requests, including preflight.
func CORS(cfg *config.CORSConfig) gin.HandlerFunc {
	if cfg == nil {
		cfg = &config.CORSConfig{AllowOrigins: []string{"*"}}
	}
	headers := newCORSHeaders(cfg)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if headers.isOriginAllowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Methods", headers.allowMethods)
			c.Header("Access-Control-Allow-Headers", headers.allowHeaders)
			if headers.allowCredentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
			if headers.maxAge != "" {
				c.Header("Access-Control-Max-Age", headers.maxAge)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
