package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/deltacron/authgate/internal/provider"
	"github.com/deltacron/authgate/internal/util"
)

// Validator verifies a bearer token and returns the identity behind it.
type Validator interface {
	Validate(ctx context.Context, token string) (*Identity, error)
}

// LocalConfig configures in-process signature verification.
type LocalConfig struct {
	// Secret is the shared HS256 signing secret of the provider.
	Secret string
	// Audience, when set, must appear in the token's aud claim.
	Audience string
	// ClockSkew is tolerated on exp/nbf checks.
	ClockSkew time.Duration
}

// localValidator verifies HS256 signatures with the shared secret.
type localValidator struct {
	key      []byte
	audience string
	skew     time.Duration
}

// NewLocalValidator creates a validator that verifies tokens in-process.
func NewLocalValidator(cfg LocalConfig) (Validator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: signing secret is required")
	}
	return &localValidator{
		key:      []byte(cfg.Secret),
		audience: cfg.Audience,
		skew:     cfg.ClockSkew,
	}, nil
}

// Validate parses and verifies a token, then maps its claims.
func (v *localValidator) Validate(_ context.Context, token string) (*Identity, error) {
	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, v.key),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.skew),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	tok, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return nil, util.NewAuthenticationErrorWithCause(reasonForParseError(err), err)
	}

	return identityFromToken(tok), nil
}

// reasonForParseError maps a parse failure to a stable message without
// leaking parser internals to clients.
func reasonForParseError(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired()):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenNotYetValid()):
		return "token not yet valid"
	default:
		return "invalid token"
	}
}

// identityFromToken maps verified claims to an Identity.
func identityFromToken(tok jwt.Token) *Identity {
	id := &Identity{UserID: tok.Subject()}

	claims := tok.PrivateClaims()
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		id.Role = role
	}
	if meta, ok := claims["user_metadata"].(map[string]interface{}); ok {
		id.UserMetadata = meta
	}
	if meta, ok := claims["app_metadata"].(map[string]interface{}); ok {
		id.AppMetadata = meta
	}

	return id
}

// remoteValidator delegates verification to the provider.
type remoteValidator struct {
	client provider.Client
}

// NewRemoteValidator creates a validator that asks the provider to verify
// each token. Slower than local mode, but catches revoked sessions.
func NewRemoteValidator(client provider.Client) Validator {
	return &remoteValidator{client: client}
}

// Validate fetches the user behind the token from the provider.
func (v *remoteValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	user, err := v.client.GetUser(ctx, token)
	if err != nil {
		// Provider rejections are already authentication errors;
		// anything else (network, 5xx) must not masquerade as one.
		return nil, err
	}
	return IdentityFromUser(user), nil
}
