// Package provider implements the REST client for the external identity
// provider (a GoTrue-compatible API). All authentication and profile
// operations of the service delegate to this client; it never stores
// credentials locally.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/deltacron/authgate/internal/observability"
	"github.com/deltacron/authgate/internal/util"
)

// authBasePath is the provider's auth API prefix.
const authBasePath = "/auth/v1"

// restBasePath is the provider's table API prefix, used by the audit sink.
const restBasePath = "/rest/v1"

// Client is the interface to the identity provider.
type Client interface {
	// SignInWithPassword exchanges credentials for a session.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	// SignUp registers a new account. Data is stored as user metadata.
	SignUp(ctx context.Context, email, password string, data map[string]interface{}) (*Session, error)
	// RefreshSession exchanges a refresh token for a new session.
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	// SignOut revokes the session behind the access token.
	SignOut(ctx context.Context, accessToken string) error
	// GetUser returns the user owning the access token.
	GetUser(ctx context.Context, accessToken string) (*User, error)
	// UpdateUser updates the user owning the access token.
	UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error)
	// ResetPasswordForEmail asks the provider to send a recovery email.
	ResetPasswordForEmail(ctx context.Context, email string) error
	// SetSession validates a recovery token pair and returns a usable
	// session, refreshing when the access token is no longer valid.
	SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error)

	// AdminGetUserByEmail looks up an account by email with the service
	// role key. Returns nil (no error) when no account exists.
	AdminGetUserByEmail(ctx context.Context, email string) (*User, error)
	// AdminDeleteUser removes an account with the service role key.
	AdminDeleteUser(ctx context.Context, userID string) error
	// AdminInsertRow inserts a row into a provider-hosted table with the
	// service role key.
	AdminInsertRow(ctx context.Context, table string, row map[string]interface{}) error
}

// httpClient is the HTTP implementation of Client.
type httpClient struct {
	baseURL        string
	anonKey        string
	serviceRoleKey string
	client         *http.Client
	breaker        *gobreaker.CircuitBreaker
	logger         observability.Logger
	metrics        *observability.Metrics
}

// Option is a functional option for configuring the client.
type Option func(*httpClient)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *httpClient) {
		c.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *httpClient) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(c *httpClient) {
		c.metrics = metrics
	}
}

// WithServiceRoleKey sets the key used for admin calls.
func WithServiceRoleKey(key string) Option {
	return func(c *httpClient) {
		c.serviceRoleKey = key
	}
}

// BreakerConfig configures the circuit breaker guarding provider calls.
type BreakerConfig struct {
	Enabled   bool
	Threshold int
	Timeout   time.Duration
}

// WithBreaker enables the circuit breaker.
func WithBreaker(cfg BreakerConfig) Option {
	return func(c *httpClient) {
		if !cfg.Enabled {
			return
		}
		threshold := uint32(cfg.Threshold) //nolint:gosec // validated positive by config
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "provider",
			MaxRequests: threshold,
			Interval:    cfg.Timeout,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= threshold && failureRatio >= 0.5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Info("provider circuit breaker state change",
					observability.String("name", name),
					observability.String("from", from.String()),
					observability.String("to", to.String()),
				)
				if c.metrics != nil {
					c.metrics.SetCircuitBreakerState(name, int(to))
				}
			},
		})
	}
}

// NewClient creates a new provider client.
func NewClient(baseURL, anonKey string, timeout time.Duration, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  &http.Client{Timeout: timeout},
		logger:  observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// call describes one provider request.
type call struct {
	operation string
	method    string
	path      string
	query     url.Values
	// key authorizes the call; it is sent as the apikey header and as the
	// bearer token unless a user token overrides it.
	key    string
	bearer string
	body   interface{}
	// out receives the decoded response body; a nil out or an empty 2xx
	// body skips decoding.
	out interface{}
}

// invoke performs a provider call through the circuit breaker. Transport
// failures and 5xx responses count against the breaker; 4xx responses are
// mapped to the error taxonomy without affecting breaker state.
func (c *httpClient) invoke(ctx context.Context, cl call) error {
	start := time.Now()
	err := c.invokeOnce(ctx, cl)
	c.recordCall(cl.operation, err, time.Since(start))
	return err
}

func (c *httpClient) recordCall(operation string, err error, duration time.Duration) {
	if c.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.RecordProviderRequest(operation, outcome, duration)
}

func (c *httpClient) invokeOnce(ctx context.Context, cl call) error {
	req, err := c.buildRequest(ctx, cl)
	if err != nil {
		return err
	}

	var resp *http.Response
	doReq := func() (interface{}, error) {
		r, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, util.NewUpstreamErrorWithCause(cl.operation, "request failed", doErr)
		}
		if r.StatusCode >= 500 {
			body, _ := io.ReadAll(io.LimitReader(r.Body, 4096))
			_ = r.Body.Close()
			return nil, &util.UpstreamError{
				Operation:  cl.operation,
				StatusCode: r.StatusCode,
				Message:    decodeError(body).message(),
			}
		}
		return r, nil
	}

	var result interface{}
	if c.breaker != nil {
		result, err = c.breaker.Execute(doReq)
	} else {
		result, err = doReq()
	}

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn("provider circuit breaker rejected call",
				observability.String("operation", cl.operation),
			)
			return util.NewUpstreamErrorWithCause(cl.operation, "circuit breaker open", err)
		}
		return err
	}

	resp = result.(*http.Response)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return util.NewUpstreamErrorWithCause(cl.operation, "reading response", err)
	}

	if resp.StatusCode >= 400 {
		return mapError(cl.operation, resp.StatusCode, decodeError(body).message())
	}

	if cl.out == nil || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, cl.out); err != nil {
		return util.NewUpstreamErrorWithCause(cl.operation, "decoding response", err)
	}
	return nil
}

// buildRequest assembles the HTTP request for a call.
func (c *httpClient) buildRequest(ctx context.Context, cl call) (*http.Request, error) {
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var reqBody io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s request: %w", cl.operation, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", cl.operation, err)
	}

	key := cl.key
	if key == "" {
		key = c.anonKey
	}
	bearer := cl.bearer
	if bearer == "" {
		bearer = key
	}

	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	observability.InjectTraceContext(ctx, req)

	return req, nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *httpClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	err := c.invoke(ctx, call{
		operation: "sign_in",
		method:    http.MethodPost,
		path:      authBasePath + "/token",
		query:     url.Values{"grant_type": {"password"}},
		body: map[string]string{
			"email":    email,
			"password": password,
		},
		out: &session,
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SignUp registers a new account.
func (c *httpClient) SignUp(ctx context.Context, email, password string, data map[string]interface{}) (*Session, error) {
	payload := map[string]interface{}{
		"email":    email,
		"password": password,
	}
	if len(data) > 0 {
		payload["data"] = data
	}

	var raw json.RawMessage
	err := c.invoke(ctx, call{
		operation: "sign_up",
		method:    http.MethodPost,
		path:      authBasePath + "/signup",
		body:      payload,
		out:       &raw,
	})
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, util.NewUpstreamErrorWithCause("sign_up", "decoding response", err)
	}

	// Providers with email confirmation enabled return the bare user
	// instead of a session.
	if session.AccessToken == "" && session.User == nil {
		var user User
		if json.Unmarshal(raw, &user) == nil && user.ID != "" {
			session.User = &user
		}
	}

	return &session, nil
}

// RefreshSession exchanges a refresh token for a new session.
func (c *httpClient) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	var session Session
	err := c.invoke(ctx, call{
		operation: "refresh_session",
		method:    http.MethodPost,
		path:      authBasePath + "/token",
		query:     url.Values{"grant_type": {"refresh_token"}},
		body:      map[string]string{"refresh_token": refreshToken},
		out:       &session,
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SignOut revokes the session behind the access token.
func (c *httpClient) SignOut(ctx context.Context, accessToken string) error {
	return c.invoke(ctx, call{
		operation: "sign_out",
		method:    http.MethodPost,
		path:      authBasePath + "/logout",
		bearer:    accessToken,
	})
}

// GetUser returns the user owning the access token.
func (c *httpClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	err := c.invoke(ctx, call{
		operation: "get_user",
		method:    http.MethodGet,
		path:      authBasePath + "/user",
		bearer:    accessToken,
		out:       &user,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser updates the user owning the access token.
func (c *httpClient) UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error) {
	var user User
	err := c.invoke(ctx, call{
		operation: "update_user",
		method:    http.MethodPut,
		path:      authBasePath + "/user",
		bearer:    accessToken,
		body:      attrs,
		out:       &user,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ResetPasswordForEmail asks the provider to send a recovery email.
func (c *httpClient) ResetPasswordForEmail(ctx context.Context, email string) error {
	return c.invoke(ctx, call{
		operation: "reset_password_email",
		method:    http.MethodPost,
		path:      authBasePath + "/recover",
		body:      map[string]string{"email": email},
	})
}

// SetSession validates a recovery token pair. The access token is checked
// first; when it is expired and a refresh token is available, the session
// is refreshed instead of rejected.
func (c *httpClient) SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	user, err := c.GetUser(ctx, accessToken)
	if err == nil {
		return &Session{
			AccessToken:  accessToken,
			TokenType:    "bearer",
			RefreshToken: refreshToken,
			User:         user,
		}, nil
	}

	if refreshToken != "" && errors.Is(err, util.ErrUnauthenticated) {
		return c.RefreshSession(ctx, refreshToken)
	}

	return nil, err
}
