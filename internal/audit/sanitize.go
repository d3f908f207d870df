package audit

import "strings"

// redactedValue replaces sensitive values in audit metadata.
const redactedValue = "[REDACTED]"

// sensitiveFields are metadata keys whose values must never be persisted.
var sensitiveFields = map[string]struct{}{
	"password":          {},
	"new_password":      {},
	"current_password":  {},
	"token":             {},
	"access_token":      {},
	"refresh_token":     {},
	"id_token":          {},
	"secret":            {},
	"api_key":           {},
	"apikey":            {},
	"authorization":     {},
	"cookie":            {},
	"session":           {},
	"credit_card":       {},
	"card_number":       {},
	"ssn":               {},
	"private_key":       {},
	"service_role_key":  {},
	"security_answer":   {},
	"verification_code": {},
}

// isSensitive reports whether a key must be redacted. Matching is
// case-insensitive and also catches compound keys like "user_password".
func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	if _, ok := sensitiveFields[lower]; ok {
		return true
	}
	for field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

// Sanitize returns a copy of metadata with sensitive values redacted.
// Nested maps and slices of maps are sanitized recursively; the input is
// never modified.
func Sanitize(metadata map[string]interface{}) map[string]interface{} {
	if metadata == nil {
		return nil
	}

	out := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		if isSensitive(k) {
			out[k] = redactedValue
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return Sanitize(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}
