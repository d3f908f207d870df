// Package jwt verifies bearer tokens issued by the identity provider.
//
// Two verification modes are supported. Local mode checks the HS256
// signature in-process with the shared provider secret and never touches
// the network. Remote mode delegates to the provider's user endpoint,
// which also catches sessions revoked after issuance.
package jwt

import "github.com/deltacron/authgate/internal/provider"

// Identity is the verified subject of a bearer token.
type Identity struct {
	UserID       string
	Email        string
	Role         string
	UserMetadata map[string]interface{}
	AppMetadata  map[string]interface{}
}

// Username returns the username from user metadata, falling back to the
// email local-part.
func (id *Identity) Username() string {
	u := provider.User{Email: id.Email, UserMetadata: id.UserMetadata}
	return u.Username()
}

// FullName returns the full name from user metadata, if present.
func (id *Identity) FullName() string {
	if v, ok := id.UserMetadata["full_name"].(string); ok {
		return v
	}
	return ""
}

// IdentityFromUser converts a provider user record into an Identity.
func IdentityFromUser(user *provider.User) *Identity {
	return &Identity{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		UserMetadata: user.UserMetadata,
		AppMetadata:  user.AppMetadata,
	}
}
