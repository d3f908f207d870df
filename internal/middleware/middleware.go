// Package middleware provides gin middleware for the auth service.
package middleware

// HTTP header constants.
const (
	// HeaderXRequestID is the X-Request-ID header name.
	HeaderXRequestID = "X-Request-ID"

	// HeaderRetryAfter is the Retry-After header name.
	HeaderRetryAfter = "Retry-After"

	// HeaderAuthorization is the Authorization header name.
	HeaderAuthorization = "Authorization"
)

// Gin context keys set by middleware.
const (
	// ContextKeyIdentity holds the verified *jwt.Identity.
	ContextKeyIdentity = "authgate.identity"

	// ContextKeyToken holds the raw bearer token string.
	ContextKeyToken = "authgate.token"
)
