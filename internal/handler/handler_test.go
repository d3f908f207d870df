package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deltacron/authgate/internal/auth/jwt"
	"github.com/deltacron/authgate/internal/middleware"
	"github.com/deltacron/authgate/internal/provider"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubClient implements provider.Client with pluggable behavior.
type stubClient struct {
	signIn        func(ctx context.Context, email, password string) (*provider.Session, error)
	signUp        func(ctx context.Context, email, password string, data map[string]interface{}) (*provider.Session, error)
	refresh       func(ctx context.Context, refreshToken string) (*provider.Session, error)
	signOut       func(ctx context.Context, accessToken string) error
	getUser       func(ctx context.Context, accessToken string) (*provider.User, error)
	updateUser    func(ctx context.Context, accessToken string, attrs provider.UserAttributes) (*provider.User, error)
	resetPassword func(ctx context.Context, email string) error
	setSession    func(ctx context.Context, accessToken, refreshToken string) (*provider.Session, error)
	adminGetUser  func(ctx context.Context, email string) (*provider.User, error)
	adminDelete   func(ctx context.Context, userID string) error
	adminInsert   func(ctx context.Context, table string, row map[string]interface{}) error
}

func (s *stubClient) SignInWithPassword(ctx context.Context, email, password string) (*provider.Session, error) {
	return s.signIn(ctx, email, password)
}

func (s *stubClient) SignUp(ctx context.Context, email, password string, data map[string]interface{}) (*provider.Session, error) {
	return s.signUp(ctx, email, password, data)
}

func (s *stubClient) RefreshSession(ctx context.Context, refreshToken string) (*provider.Session, error) {
	return s.refresh(ctx, refreshToken)
}

func (s *stubClient) SignOut(ctx context.Context, accessToken string) error {
	return s.signOut(ctx, accessToken)
}

func (s *stubClient) GetUser(ctx context.Context, accessToken string) (*provider.User, error) {
	return s.getUser(ctx, accessToken)
}

func (s *stubClient) UpdateUser(ctx context.Context, accessToken string, attrs provider.UserAttributes) (*provider.User, error) {
	return s.updateUser(ctx, accessToken, attrs)
}

func (s *stubClient) ResetPasswordForEmail(ctx context.Context, email string) error {
	return s.resetPassword(ctx, email)
}

func (s *stubClient) SetSession(ctx context.Context, accessToken, refreshToken string) (*provider.Session, error) {
	return s.setSession(ctx, accessToken, refreshToken)
}

func (s *stubClient) AdminGetUserByEmail(ctx context.Context, email string) (*provider.User, error) {
	return s.adminGetUser(ctx, email)
}

func (s *stubClient) AdminDeleteUser(ctx context.Context, userID string) error {
	return s.adminDelete(ctx, userID)
}

func (s *stubClient) AdminInsertRow(ctx context.Context, table string, row map[string]interface{}) error {
	return s.adminInsert(ctx, table, row)
}

func testUser() *provider.User {
	return &provider.User{
		ID:    "user-1",
		Email: "jane@example.com",
		UserMetadata: map[string]interface{}{
			"username":  "jane",
			"full_name": "Jane Doe",
		},
		CreatedAt: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
}

func testSession() *provider.Session {
	return &provider.Session{
		AccessToken:  "access-token",
		TokenType:    "bearer",
		ExpiresIn:    3600,
		RefreshToken: "refresh-token",
		User:         testUser(),
	}
}

// authenticated simulates the auth middleware for protected routes.
func authenticated(identity *jwt.Identity, token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyIdentity, identity)
		c.Set(middleware.ContextKeyToken, token)
		c.Next()
	}
}

func testIdentity() *jwt.Identity {
	return &jwt.Identity{
		UserID: "user-1",
		Email:  "jane@example.com",
		UserMetadata: map[string]interface{}{
			"username":  "jane",
			"full_name": "Jane Doe",
		},
	}
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}
