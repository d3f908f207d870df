package provider

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/deltacron/authgate/internal/util"
)

// apiError is the provider's error payload. GoTrue and PostgREST disagree
// on field names, so all known spellings are decoded.
type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Code             string `json:"code"`
}

// message returns the most specific message available.
func (e *apiError) message() string {
	for _, m := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if m != "" {
			return m
		}
	}
	return ""
}

// decodeError parses an error response body. A body that is not valid JSON
// yields an empty message.
func decodeError(body []byte) *apiError {
	var e apiError
	_ = json.Unmarshal(body, &e)
	return &e
}

// Message substrings that identify a failure class regardless of the status
// code the provider chose.
var (
	authMessages = []string{
		"invalid jwt", "jwt expired", "token is expired",
		"invalid login credentials", "invalid token",
		"invalid refresh token", "session not found",
		"email not confirmed",
	}
	conflictMessages = []string{
		"already registered", "already exists", "duplicate",
	}
	notFoundMessages = []string{"not found"}
	validationMsgs   = []string{"validation", "invalid email", "password should be"}
)

func containsAny(message string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(message, n) {
			return true
		}
	}
	return false
}

// mapError converts a provider failure into the API error taxonomy. The
// message is matched before the status code because the provider reports
// several distinct conditions under 400.
func mapError(operation string, status int, message string) error {
	lower := strings.ToLower(message)

	switch {
	case containsAny(lower, authMessages):
		return util.NewAuthenticationError(message)
	case containsAny(lower, conflictMessages):
		return util.NewConflictError(message)
	case containsAny(lower, notFoundMessages):
		return util.NewNotFoundError("user", message)
	case containsAny(lower, validationMsgs):
		return util.NewValidationError(message)
	}

	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return util.NewAuthenticationError(message)
	case http.StatusForbidden:
		return util.NewAuthorizationError(message)
	case http.StatusNotFound:
		return util.NewNotFoundError("user", message)
	case http.StatusConflict:
		return util.NewConflictError(message)
	case http.StatusUnprocessableEntity:
		return util.NewValidationError(message)
	default:
		return &util.UpstreamError{
			Operation:  operation,
			StatusCode: status,
			Message:    message,
		}
	}
}
