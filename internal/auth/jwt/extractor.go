package jwt

import (
	"errors"
	"net/http"
	"strings"
)

// Extraction errors.
var (
	// ErrNoToken indicates the request carries no bearer token.
	ErrNoToken = errors.New("no bearer token in request")
	// ErrMalformedHeader indicates an Authorization header that is not a
	// well-formed bearer credential.
	ErrMalformedHeader = errors.New("malformed authorization header")
)

// TokenExtractor extracts a bearer token from a request.
type TokenExtractor interface {
	Extract(r *http.Request) (string, error)
}

// HeaderExtractor extracts tokens from an HTTP header using a scheme
// prefix. The zero value reads `Authorization: Bearer <token>`.
type HeaderExtractor struct {
	// Header is the header name. Defaults to "Authorization".
	Header string
	// Scheme is the expected credential scheme. Defaults to "Bearer".
	Scheme string
}

// Extract implements TokenExtractor.
func (e *HeaderExtractor) Extract(r *http.Request) (string, error) {
	header := e.Header
	if header == "" {
		header = "Authorization"
	}
	scheme := e.Scheme
	if scheme == "" {
		scheme = "Bearer"
	}

	value := r.Header.Get(header)
	if value == "" {
		return "", ErrNoToken
	}

	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], scheme) {
		return "", ErrMalformedHeader
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMalformedHeader
	}

	return token, nil
}

// DefaultExtractor returns the standard Authorization bearer extractor.
func DefaultExtractor() TokenExtractor {
	return &HeaderExtractor{}
}
