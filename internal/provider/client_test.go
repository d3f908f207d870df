package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltacron/authgate/internal/util"
)

const (
	testAnonKey    = "anon-key"
	testServiceKey = "service-key"
)

func testUser() User {
	return User{
		ID:    "11111111-2222-3333-4444-555555555555",
		Email: "jo@example.com",
		UserMetadata: map[string]interface{}{
			"username":  "jo",
			"full_name": "Jo Doe",
		},
	}
}

func testSession() Session {
	u := testUser()
	return Session{
		AccessToken:  "access-token",
		TokenType:    "bearer",
		ExpiresIn:    3600,
		RefreshToken: "refresh-token",
		User:         &u,
	}
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, testAnonKey, 2*time.Second, opts...)
}

func TestSignInWithPassword(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, testAnonKey, r.Header.Get("apikey"))
		assert.Equal(t, "Bearer "+testAnonKey, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "jo@example.com", body["email"])
		assert.Equal(t, "hunter22", body["password"])

		_ = json.NewEncoder(w).Encode(testSession())
	}))

	session, err := client.SignInWithPassword(context.Background(), "jo@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "access-token", session.AccessToken)
	assert.Equal(t, "refresh-token", session.RefreshToken)
	require.NotNil(t, session.User)
	assert.Equal(t, "jo", session.User.Username())
}

func TestSignInInvalidCredentials(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	}))

	_, err := client.SignInWithPassword(context.Background(), "jo@example.com", "wrong")
	assert.True(t, errors.Is(err, util.ErrUnauthenticated))
}

func TestSignUpReturnsSession(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		data, ok := body["data"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "jo", data["username"])

		_ = json.NewEncoder(w).Encode(testSession())
	}))

	session, err := client.SignUp(context.Background(), "jo@example.com", "hunter22",
		map[string]interface{}{"username": "jo"})
	require.NoError(t, err)
	require.NotNil(t, session.User)
	assert.Equal(t, "jo@example.com", session.User.Email)
}

func TestSignUpConfirmationPendingReturnsBareUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(testUser())
	}))

	session, err := client.SignUp(context.Background(), "jo@example.com", "hunter22", nil)
	require.NoError(t, err)
	assert.Empty(t, session.AccessToken)
	require.NotNil(t, session.User)
	assert.Equal(t, "jo@example.com", session.User.Email)
}

func TestSignUpDuplicate(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"msg":"User already registered"}`))
	}))

	_, err := client.SignUp(context.Background(), "jo@example.com", "hunter22", nil)
	assert.True(t, errors.Is(err, util.ErrConflict))
}

func TestRefreshSession(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-token", body["refresh_token"])

		_ = json.NewEncoder(w).Encode(testSession())
	}))

	session, err := client.RefreshSession(context.Background(), "refresh-token")
	require.NoError(t, err)
	assert.Equal(t, "access-token", session.AccessToken)
}

func TestRefreshSessionInvalidToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"msg":"Invalid Refresh Token"}`))
	}))

	_, err := client.RefreshSession(context.Background(), "stale")
	assert.True(t, errors.Is(err, util.ErrUnauthenticated))
}

func TestSignOut(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/logout", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		assert.Equal(t, testAnonKey, r.Header.Get("apikey"))
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.NoError(t, client.SignOut(context.Background(), "user-token"))
}

func TestGetUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(testUser())
	}))

	user, err := client.GetUser(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "Jo Doe", user.FullName())
}

func TestGetUserExpiredToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg":"JWT expired"}`))
	}))

	_, err := client.GetUser(context.Background(), "stale")
	assert.True(t, errors.Is(err, util.ErrUnauthenticated))
}

func TestUpdateUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/auth/v1/user", r.URL.Path)

		var attrs UserAttributes
		require.NoError(t, json.NewDecoder(r.Body).Decode(&attrs))
		assert.Equal(t, "new name", attrs.Data["full_name"])

		u := testUser()
		u.UserMetadata["full_name"] = "new name"
		_ = json.NewEncoder(w).Encode(u)
	}))

	user, err := client.UpdateUser(context.Background(), "user-token", UserAttributes{
		Data: map[string]interface{}{"full_name": "new name"},
	})
	require.NoError(t, err)
	assert.Equal(t, "new name", user.FullName())
}

func TestResetPasswordForEmail(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/recover", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}))

	assert.NoError(t, client.ResetPasswordForEmail(context.Background(), "jo@example.com"))
}

func TestSetSessionValidToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		_ = json.NewEncoder(w).Encode(testUser())
	}))

	session, err := client.SetSession(context.Background(), "recovery-token", "refresh-token")
	require.NoError(t, err)
	assert.Equal(t, "recovery-token", session.AccessToken)
	assert.Equal(t, "refresh-token", session.RefreshToken)
	require.NotNil(t, session.User)
}

func TestSetSessionExpiredTokenRefreshes(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1/user" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"JWT expired"}`))
			return
		}
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		_ = json.NewEncoder(w).Encode(testSession())
	}))

	session, err := client.SetSession(context.Background(), "expired", "refresh-token")
	require.NoError(t, err)
	assert.Equal(t, "access-token", session.AccessToken)
}

func TestSetSessionExpiredWithoutRefreshToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg":"JWT expired"}`))
	}))

	_, err := client.SetSession(context.Background(), "expired", "")
	assert.True(t, errors.Is(err, util.ErrUnauthenticated))
}

func TestAdminGetUserByEmail(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/admin/users", r.URL.Path)
		assert.Equal(t, "jo@example.com", r.URL.Query().Get("email"))
		assert.Equal(t, testServiceKey, r.Header.Get("apikey"))
		assert.Equal(t, "Bearer "+testServiceKey, r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(adminUserList{Users: []User{testUser()}})
	}), WithServiceRoleKey(testServiceKey))

	user, err := client.AdminGetUserByEmail(context.Background(), "jo@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "jo@example.com", user.Email)
}

func TestAdminGetUserByEmailNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(adminUserList{})
	}), WithServiceRoleKey(testServiceKey))

	user, err := client.AdminGetUserByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestAdminCallsRequireServiceKey(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := client.AdminGetUserByEmail(context.Background(), "jo@example.com")
	assert.True(t, errors.Is(err, util.ErrForbidden))

	err = client.AdminDeleteUser(context.Background(), "id")
	assert.True(t, errors.Is(err, util.ErrForbidden))

	err = client.AdminInsertRow(context.Background(), "audit_logs", nil)
	assert.True(t, errors.Is(err, util.ErrForbidden))
}

func TestAdminDeleteUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/auth/v1/admin/users/user-1", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}), WithServiceRoleKey(testServiceKey))

	assert.NoError(t, client.AdminDeleteUser(context.Background(), "user-1"))
}

func TestAdminInsertRow(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/audit_logs", r.URL.Path)

		var row map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&row))
		assert.Equal(t, "login", row["action"])

		w.WriteHeader(http.StatusCreated)
	}), WithServiceRoleKey(testServiceKey))

	err := client.AdminInsertRow(context.Background(), "audit_logs", map[string]interface{}{
		"action": "login",
	})
	assert.NoError(t, err)
}

func TestServerErrorMapsToUpstream(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"database down"}`))
	}))

	_, err := client.GetUser(context.Background(), "token")
	assert.True(t, errors.Is(err, util.ErrUpstream))

	var upstreamErr *util.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusBadGateway, upstreamErr.StatusCode)
}

func TestTransportErrorMapsToUpstream(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", testAnonKey, 200*time.Millisecond)

	_, err := client.GetUser(context.Background(), "token")
	assert.True(t, errors.Is(err, util.ErrUpstream))
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	var calls int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}), WithBreaker(BreakerConfig{Enabled: true, Threshold: 2, Timeout: time.Minute}))

	for i := 0; i < 5; i++ {
		_, err := client.GetUser(context.Background(), "token")
		assert.True(t, errors.Is(err, util.ErrUpstream))
	}

	// Breaker trips after the threshold; later calls never reach the server.
	assert.Less(t, calls, 5)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		message  string
		sentinel error
	}{
		{"jwt expired", 401, "JWT expired", util.ErrUnauthenticated},
		{"invalid creds under 400", 400, "Invalid login credentials", util.ErrUnauthenticated},
		{"duplicate under 400", 400, "User already registered", util.ErrConflict},
		{"not found message", 400, "User not found", util.ErrNotFound},
		{"validation message", 400, "Password should be at least 6 characters", util.ErrInvalidInput},
		{"forbidden status", 403, "nope", util.ErrForbidden},
		{"not found status", 404, "", util.ErrNotFound},
		{"conflict status", 409, "", util.ErrConflict},
		{"unprocessable status", 422, "", util.ErrInvalidInput},
		{"teapot maps upstream", 418, "weird", util.ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError("op", tt.status, tt.message)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}

func TestUserUsernameFallback(t *testing.T) {
	u := User{Email: "sam@example.com"}
	assert.Equal(t, "sam", u.Username())

	u.UserMetadata = map[string]interface{}{"username": "sammy"}
	assert.Equal(t, "sammy", u.Username())
}
