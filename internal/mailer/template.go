package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

// PasswordResetData feeds the password reset notification template.
type PasswordResetData struct {
	Email    string
	ResetURL string
	AppName  string
}

var passwordResetTemplate = template.Must(template.New("password_reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1f2933;">
  <h2>{{.AppName}} password reset</h2>
  <p>A password reset was requested for <strong>{{.Email}}</strong>.</p>
  {{if .ResetURL}}<p><a href="{{.ResetURL}}">Reset your password</a></p>{{end}}
  <p>If you did not request this, you can safely ignore this email.</p>
</body>
</html>`))

// RenderPasswordReset renders the password reset notification body.
func RenderPasswordReset(data PasswordResetData) (string, error) {
	if data.AppName == "" {
		data.AppName = "Authgate"
	}
	var buf bytes.Buffer
	if err := passwordResetTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render password reset template: %w", err)
	}
	return buf.String(), nil
}

// SendPasswordResetNotice renders and sends the password reset
// notification to a single recipient.
func SendPasswordResetNotice(ctx context.Context, m Mailer, email string, data PasswordResetData) error {
	if data.Email == "" {
		data.Email = email
	}
	body, err := RenderPasswordReset(data)
	if err != nil {
		return err
	}
	return m.Send(ctx, Message{
		To:      []string{email},
		Subject: "Password reset requested",
		HTML:    body,
	})
}
