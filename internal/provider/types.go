package provider

import (
	"strings"
	"time"
)

// User is the provider's representation of an account.
type User struct {
	ID               string                 `json:"id"`
	Aud              string                 `json:"aud,omitempty"`
	Role             string                 `json:"role,omitempty"`
	Email            string                 `json:"email"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at,omitempty"`
	Phone            string                 `json:"phone,omitempty"`
	UserMetadata     map[string]interface{} `json:"user_metadata,omitempty"`
	AppMetadata      map[string]interface{} `json:"app_metadata,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// Username returns the username from user metadata, falling back to the
// local part of the email address.
func (u *User) Username() string {
	if v, ok := u.UserMetadata["username"].(string); ok && v != "" {
		return v
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

// FullName returns the full name from user metadata, if present.
func (u *User) FullName() string {
	if v, ok := u.UserMetadata["full_name"].(string); ok {
		return v
	}
	return ""
}

// Session is an authenticated provider session.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// UserAttributes carries fields for a user update. Nil fields are left
// unchanged; Data entries are merged into user metadata.
type UserAttributes struct {
	Email    string                 `json:"email,omitempty"`
	Password string                 `json:"password,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}
