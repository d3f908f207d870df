// Package audit records security-relevant events asynchronously. Recording
// never blocks a request and never surfaces an error to the caller; a full
// queue drops the event and a failing sink is logged.
package audit

import "time"

// Action identifies what the caller did.
type Action string

// Audited actions.
const (
	ActionLogin                Action = "login"
	ActionLoginFailed          Action = "login_failed"
	ActionRegister             Action = "register"
	ActionLogout               Action = "logout"
	ActionTokenRefresh         Action = "token_refresh"
	ActionPasswordResetRequest Action = "password_reset_request"
	ActionPasswordReset        Action = "password_reset"
	ActionProfileRead          Action = "profile_read"
	ActionProfileUpdate        Action = "profile_update"
	ActionUserDelete           Action = "user_delete"
)

// Outcome is the result of an audited action.
type Outcome string

// Outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one audit record.
type Event struct {
	Timestamp  time.Time
	UserID     string
	Action     Action
	Resource   string
	ResourceID string
	Outcome    Outcome
	IPAddress  string
	UserAgent  string
	RequestID  string
	Error      string
	Metadata   map[string]interface{}
}

// NewEvent creates an event for an action with the current timestamp and a
// success outcome.
func NewEvent(action Action) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Outcome:   OutcomeSuccess,
	}
}

// WithUser sets the acting user.
func (e *Event) WithUser(userID string) *Event {
	e.UserID = userID
	return e
}

// WithResource sets the affected resource and its identifier.
func (e *Event) WithResource(resource, resourceID string) *Event {
	e.Resource = resource
	e.ResourceID = resourceID
	return e
}

// WithOutcome sets the outcome.
func (e *Event) WithOutcome(outcome Outcome) *Event {
	e.Outcome = outcome
	return e
}

// WithError marks the event failed and records the error text.
func (e *Event) WithError(err error) *Event {
	if err != nil {
		e.Outcome = OutcomeFailure
		e.Error = err.Error()
	}
	return e
}

// WithClient sets the caller's network identity.
func (e *Event) WithClient(ip, userAgent string) *Event {
	e.IPAddress = ip
	e.UserAgent = userAgent
	return e
}

// WithRequestID sets the correlating request ID.
func (e *Event) WithRequestID(requestID string) *Event {
	e.RequestID = requestID
	return e
}

// WithMetadata merges sanitized metadata into the event.
func (e *Event) WithMetadata(metadata map[string]interface{}) *Event {
	if len(metadata) == 0 {
		return e
	}
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{}, len(metadata))
	}
	for k, v := range Sanitize(metadata) {
		e.Metadata[k] = v
	}
	return e
}

// Row flattens the event into the provider table shape.
func (e *Event) Row() map[string]interface{} {
	metadata := make(map[string]interface{}, len(e.Metadata)+3)
	for k, v := range e.Metadata {
		metadata[k] = v
	}
	metadata["outcome"] = string(e.Outcome)
	if e.RequestID != "" {
		metadata["request_id"] = e.RequestID
	}
	if e.Error != "" {
		metadata["error"] = e.Error
	}

	return map[string]interface{}{
		"user_id":     nullable(e.UserID),
		"action":      string(e.Action),
		"resource":    nullable(e.Resource),
		"resource_id": nullable(e.ResourceID),
		"ip_address":  nullable(e.IPAddress),
		"user_agent":  nullable(e.UserAgent),
		"metadata":    metadata,
		"created_at":  e.Timestamp,
	}
}

// nullable maps empty strings to NULL so the table keeps clean values.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
