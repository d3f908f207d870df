package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltacron/authgate/internal/provider"
	"github.com/deltacron/authgate/internal/util"
)

func newAuthEngine(client provider.Client) *gin.Engine {
	h := NewAuthHandler(client)
	engine := gin.New()
	engine.POST("/auth/login", h.Login)
	engine.POST("/auth/register", h.Register)
	engine.POST("/auth/refresh", h.Refresh)
	engine.POST("/auth/forgot-password", h.ForgotPassword)
	engine.POST("/auth/reset-password", h.ResetPassword)
	engine.POST("/auth/logout", authenticated(testIdentity(), "access-token"), h.Logout)
	engine.GET("/auth/me", authenticated(testIdentity(), "access-token"), h.Me)
	return engine
}

func TestLoginSuccess(t *testing.T) {
	client := &stubClient{
		signIn: func(_ context.Context, email, password string) (*provider.Session, error) {
			assert.Equal(t, "jane@example.com", email)
			assert.Equal(t, "s3cret-pw", password)
			return testSession(), nil
		},
	}
	engine := newAuthEngine(client)

	w := doJSON(t, engine, http.MethodPost, "/auth/login",
		`{"email":"jane@example.com","password":"s3cret-pw"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
	assert.Equal(t, "jane", resp.User.Username)
	assert.Equal(t, "Jane Doe", resp.User.FullName)
}

func TestLoginUsernameFallsBackToEmailLocalPart(t *testing.T) {
	client := &stubClient{
		signIn: func(context.Context, string, string) (*provider.Session, error) {
			session := testSession()
			session.User.UserMetadata = nil
			return session, nil
		},
	}
	engine := newAuthEngine(client)

	w := doJSON(t, engine, http.MethodPost, "/auth/login",
		`{"email":"jane@example.com","password":"s3cret-pw"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "jane", resp.User.Username)
}

func TestLoginInvalidCredentials(t *testing.T) {
	client := &stubClient{
		signIn: func(context.Context, string, string) (*provider.Session, error) {
			return nil, util.NewAuthenticationError("invalid login credentials")
		},
	}
	engine := newAuthEngine(client)

	w := doJSON(t, engine, http.MethodPost, "/auth/login",
		`{"email":"jane@example.com","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication_error")
}

func TestLoginMissingFields(t *testing.T) {
	engine := newAuthEngine(&stubClient{})

	w := doJSON(t, engine, http.MethodPost, "/auth/login", `{"email":"jane@example.com"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
	assert.Contains(t, w.Body.String(), "password")
}

func TestLoginMalformedBody(t *testing.T) {
	engine := newAuthEngine(&stubClient{})

	w := doJSON(t, engine, http.MethodPost, "/auth/login", `{"email": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bad_request")
}

func TestRegisterCreated(t *testing.T) {
	var gotData map[string]interface{}
	client := &stubClient{
		adminGetUser: func(context.Context, string) (*provider.User, error) {
			return nil, util.NewNotFoundError("user", "user not found")
		},
		signUp: func(_ context.Context, _, _ string, data map[string]interface{}) (*provider.Session, error) {
			gotData = data
			return testSession(), nil
		},
	}
	engine := newAuthEngine(client)

	w := doJSON(t, engine, http.MethodPost, "/auth/register",
		`{"email":"jane@example.com","password":"longenough","full_name":"Jane Doe"}`)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp RegisterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "created", resp.Status)
	assert.Equal(t, "user-1", resp.User.ID)

	// username defaults to the email local-part
	assert.Equal(t, "jane", gotData["username"])
	assert.Equal(t, "Jane Doe", gotData["full_name"])
}

func TestRegisterExisting(t *testing.T) {
	client := &stubClient{
		adminGetUser: func(context.Context, string) (*provider.User, error) {
			return testUser(), nil
		},
	}
	engine := newAuthEngine(client)

	w := doJSON(t, engine, http.MethodPost, "/auth/register",
		`{"email":"jane@example.com","password":"longenough"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp RegisterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "exists", resp.Status)
	assert.Equal(t, "jane@example.com", resp.User.Email)
}

func TestRegisterShortPassword(t *testing.T) {
	engine := newAuthEngine(&stubClient{})

	w := doJSON(t, engine, http.MethodPost, "/auth/register",
		`{"email":"jane@example.com","password":"short"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRefreshSuccess(t *testing.T) {
	client := &stubClient{
		refresh: func(_ context.Context, refreshToken string) (*provider.Session, error) {
			assert.Equal(t, "refresh-token", refreshToken)
			return testSession(), nil
		},
	}
	engine := newAuthEngine(client)

	w := doJSON(t, engine, http.MethodPost, "/auth/refresh", `{"refresh_token":"refresh-token"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "access-token")
}

func TestRefreshInvalidToken(t *testing.T) {
	client := &stubClient{
		refresh: func(context.Context, string) (*provider.Session, error) {
			return nil, util.NewAuthenticationError("invalid refresh token")
		},
	}
	engine := newAuthEngine(client)

	w := doJSON(t, engine, http.MethodPost, "/auth/refresh", `{"refresh_token":"stale"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout(t *testing.T) {
	var revoked string
	client := &stubClient{
		signOut: func(_ context.Context, accessToken string) error {
			revoked = accessToken
			return nil
		},
	}
	engine := newAuthEngine(client)

	w := doJSON(t, engine, http.MethodPost, "/auth/logout", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "access-token", revoked)
	assert.Contains(t, w.Body.String(), "Successfully logged out")
}

func TestMe(t *testing.T) {
	client := &stubClient{
		getUser: func(_ context.Context, accessToken string) (*provider.User, error) {
			assert.Equal(t, "access-token", accessToken)
			return testUser(), nil
		},
	}
	engine := newAuthEngine(client)

	req := doJSON(t, engine, http.MethodGet, "/auth/me", "")

	require.Equal(t, http.StatusOK, req.Code)

	var resp UserResponse
	require.NoError(t, json.Unmarshal(req.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp.ID)
	assert.Equal(t, "jane", resp.Username)
	assert.NotEmpty(t, resp.CreatedAt)
}

func TestForgotPassword(t *testing.T) {
	var requested string
	client := &stubClient{
		resetPassword: func(_ context.Context, email string) error {
			requested = email
			return nil
		},
	}
	engine := newAuthEngine(client)

	w := doJSON(t, engine, http.MethodPost, "/auth/forgot-password", `{"email":"jane@example.com"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jane@example.com", requested)
	assert.Contains(t, w.Body.String(), "Password reset email sent")
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	client := &stubClient{
		resetPassword: func(context.Context, string) error {
			return util.NewNotFoundError("user", "User not found")
		},
	}
	engine := newAuthEngine(client)

	w := doJSON(t, engine, http.MethodPost, "/auth/forgot-password",
		`{"email":"nobody@example.com"}`)

	// unknown emails are indistinguishable from registered ones
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Password reset email sent")
	assert.NotContains(t, w.Body.String(), "not_found")
}

func TestForgotPasswordRejectedEmailMasked(t *testing.T) {
	client := &stubClient{
		resetPassword: func(context.Context, string) error {
			return util.NewValidationError("email rate limit exceeded")
		},
	}
	engine := newAuthEngine(client)

	w := doJSON(t, engine, http.MethodPost, "/auth/forgot-password",
		`{"email":"jane@example.com"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Password reset email sent")
}

func TestForgotPasswordProviderDown(t *testing.T) {
	client := &stubClient{
		resetPassword: func(context.Context, string) error {
			return util.NewUpstreamError("recover", "provider unavailable")
		},
	}
	engine := newAuthEngine(client)

	w := doJSON(t, engine, http.MethodPost, "/auth/forgot-password", `{"email":"jane@example.com"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "external_service_error")
}

func TestResetPassword(t *testing.T) {
	var updatedPassword string
	client := &stubClient{
		setSession: func(_ context.Context, accessToken, refreshToken string) (*provider.Session, error) {
			assert.Equal(t, "recovery-token", accessToken)
			assert.Equal(t, "recovery-refresh", refreshToken)
			return testSession(), nil
		},
		updateUser: func(_ context.Context, _ string, attrs provider.UserAttributes) (*provider.User, error) {
			updatedPassword = attrs.Password
			return testUser(), nil
		},
	}
	engine := newAuthEngine(client)

	w := doJSON(t, engine, http.MethodPost, "/auth/reset-password",
		`{"token":"recovery-token","refresh_token":"recovery-refresh","password":"newpassword"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "newpassword", updatedPassword)
	assert.Contains(t, w.Body.String(), "Password successfully reset")
}

func TestResetPasswordBadToken(t *testing.T) {
	client := &stubClient{
		setSession: func(context.Context, string, string) (*provider.Session, error) {
			return nil, util.NewAuthenticationError("invalid recovery token")
		},
	}
	engine := newAuthEngine(client)

	w := doJSON(t, engine, http.MethodPost, "/auth/reset-password",
		`{"token":"bogus","password":"newpassword"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
