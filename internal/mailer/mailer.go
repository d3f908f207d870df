// Package mailer sends transactional email through a Resend-compatible
// HTTP API. Sending is best effort: callers log failures and move on,
// mail must never block or fail an auth request.
package mailer

import (
	"context"
	"errors"
)

// Message is a single outbound email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// ErrNotConfigured is returned when the mailer has no API key.
var ErrNotConfigured = errors.New("mailer not configured")

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NopMailer drops every message. Used when mail is not configured.
type NopMailer struct{}

// Send implements Mailer.
func (NopMailer) Send(context.Context, Message) error {
	return nil
}
