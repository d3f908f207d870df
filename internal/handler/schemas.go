package handler

import (
	"time"

	"github.com/deltacron/authgate/internal/provider"
)

// LoginRequest carries user credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest carries the fields for account creation.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// RefreshRequest carries the refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes a password reset with the recovery
// session tokens from the provider's email link.
type ResetPasswordRequest struct {
	Token        string `json:"token" binding:"required"`
	RefreshToken string `json:"refresh_token"`
	Password     string `json:"password" binding:"required,min=8"`
}

// UpdateProfileRequest carries the mutable profile fields. All fields
// are optional, but at least one must be set.
type UpdateProfileRequest struct {
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// TokenUser is the abbreviated user record inside a token bundle.
type TokenUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// TokenResponse is the bundle returned by login and refresh.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	RefreshToken string    `json:"refresh_token"`
	User         TokenUser `json:"user"`
}

// UserResponse is the full user record shape.
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// RegisterResponse reports whether the account was created or already
// present.
type RegisterResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	User    UserResponse `json:"user"`
}

// ProfileResponse is the profile shape for /user/profile.
type ProfileResponse struct {
	Username  string `json:"username,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ProfileUpdateResponse wraps the updated profile.
type ProfileUpdateResponse struct {
	Status string          `json:"status"`
	User   ProfileResponse `json:"user"`
}

// MessageResponse is a plain status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResponse is a status plus message pair.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func tokenResponse(session *provider.Session) TokenResponse {
	resp := TokenResponse{
		AccessToken:  session.AccessToken,
		TokenType:    "bearer",
		ExpiresIn:    session.ExpiresIn,
		RefreshToken: session.RefreshToken,
	}
	if session.User != nil {
		resp.User = TokenUser{
			Username: session.User.Username(),
			Email:    session.User.Email,
			FullName: session.User.FullName(),
		}
	}
	return resp
}

func userResponse(user *provider.User) UserResponse {
	resp := UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username(),
		FullName: user.FullName(),
	}
	if !user.CreatedAt.IsZero() {
		resp.CreatedAt = user.CreatedAt.Format(time.RFC3339)
	}
	if !user.UpdatedAt.IsZero() {
		resp.UpdatedAt = user.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

func profileResponse(user *provider.User) ProfileResponse {
	resp := ProfileResponse{
		FullName: user.FullName(),
	}
	if v, ok := user.UserMetadata["username"].(string); ok {
		resp.Username = v
	}
	if v, ok := user.UserMetadata["avatar_url"].(string); ok {
		resp.AvatarURL = v
	}
	return resp
}
