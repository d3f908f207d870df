package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deltacron/authgate/internal/audit"
	"github.com/deltacron/authgate/internal/mailer"
	"github.com/deltacron/authgate/internal/middleware"
	"github.com/deltacron/authgate/internal/observability"
	"github.com/deltacron/authgate/internal/provider"
	"github.com/deltacron/authgate/internal/util"
)

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
	client   provider.Client
	recorder audit.Recorder
	mail     mailer.Mailer
	resetURL string
	logger   observability.Logger
}

// AuthOption configures an AuthHandler.
type AuthOption func(*AuthHandler)

// WithAuditRecorder sets the audit recorder.
func WithAuditRecorder(recorder audit.Recorder) AuthOption {
	return func(h *AuthHandler) {
		if recorder != nil {
			h.recorder = recorder
		}
	}
}

// WithMailer enables password reset notification email. resetURL is the
// frontend reset page included in the notification.
func WithMailer(m mailer.Mailer, resetURL string) AuthOption {
	return func(h *AuthHandler) {
		if m != nil {
			h.mail = m
			h.resetURL = resetURL
		}
	}
}

// WithHandlerLogger sets the logger.
func WithHandlerLogger(logger observability.Logger) AuthOption {
	return func(h *AuthHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewAuthHandler creates the /auth endpoint handler.
func NewAuthHandler(client provider.Client, opts ...AuthOption) *AuthHandler {
	h := &AuthHandler{
		client:   client,
		recorder: audit.NopRecorder(),
		mail:     mailer.NopMailer{},
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// record stamps request metadata onto an audit event and hands it off.
// Recording is fire and forget.
func (h *AuthHandler) record(c *gin.Context, event *audit.Event) {
	event.WithClient(c.ClientIP(), c.Request.UserAgent()).
		WithRequestID(observability.RequestIDFromContext(c.Request.Context()))
	h.recorder.Record(event)
}

// Login authenticates credentials against the provider and relays the
// session token bundle.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.client.SignInWithPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.record(c, audit.NewEvent(audit.ActionLoginFailed).
			WithError(err).
			WithMetadata(map[string]interface{}{"email": req.Email}))
		respondError(c, err)
		return
	}

	event := audit.NewEvent(audit.ActionLogin)
	if session.User != nil {
		event.WithUser(session.User.ID)
	}
	h.record(c, event)

	c.JSON(http.StatusOK, tokenResponse(session))
}

// Register creates an account. A duplicate email reports status
// "exists" with the existing record instead of an error.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	if existing, err := h.client.AdminGetUserByEmail(c.Request.Context(), req.Email); err == nil && existing != nil {
		c.JSON(http.StatusOK, RegisterResponse{
			Status:  "exists",
			Message: "user is already registered",
			User:    userResponse(existing),
		})
		return
	}

	username := req.Username
	if username == "" {
		if at := strings.Index(req.Email, "@"); at > 0 {
			username = req.Email[:at]
		}
	}
	data := map[string]interface{}{"username": username}
	if req.FullName != "" {
		data["full_name"] = req.FullName
	}

	session, err := h.client.SignUp(c.Request.Context(), req.Email, req.Password, data)
	if err != nil {
		h.record(c, audit.NewEvent(audit.ActionRegister).
			WithError(err).
			WithMetadata(map[string]interface{}{"email": req.Email}))
		respondError(c, err)
		return
	}
	if session.User == nil {
		respondError(c, util.NewUpstreamError("sign-up", "provider returned no user"))
		return
	}

	h.record(c, audit.NewEvent(audit.ActionRegister).WithUser(session.User.ID))

	c.JSON(http.StatusCreated, RegisterResponse{
		Status: "created",
		User:   userResponse(session.User),
	})
}

// Refresh exchanges a refresh token for a new session.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.client.RefreshSession(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.record(c, audit.NewEvent(audit.ActionTokenRefresh).WithError(err))
		respondError(c, err)
		return
	}

	event := audit.NewEvent(audit.ActionTokenRefresh)
	if session.User != nil {
		event.WithUser(session.User.ID)
	}
	h.record(c, event)

	c.JSON(http.StatusOK, tokenResponse(session))
}

// Logout revokes the current session. Protected route.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := middleware.TokenFromContext(c)
	identity, _ := middleware.IdentityFromContext(c)

	if err := h.client.SignOut(c.Request.Context(), token); err != nil {
		event := audit.NewEvent(audit.ActionLogout).WithError(err)
		if identity != nil {
			event.WithUser(identity.UserID)
		}
		h.record(c, event)
		respondError(c, err)
		return
	}

	event := audit.NewEvent(audit.ActionLogout)
	if identity != nil {
		event.WithUser(identity.UserID)
	}
	h.record(c, event)

	c.JSON(http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

// Me returns the authenticated user's record. Protected route.
func (h *AuthHandler) Me(c *gin.Context) {
	token, _ := middleware.TokenFromContext(c)

	user, err := h.client.GetUser(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, userResponse(user))
}

// ForgotPassword asks the provider to send a password reset email and,
// when mail is configured, sends a best-effort notification of its own.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.client.ResetPasswordForEmail(c.Request.Context(), req.Email); err != nil {
		h.record(c, audit.NewEvent(audit.ActionPasswordResetRequest).
			WithError(err).
			WithMetadata(map[string]interface{}{"email": req.Email}))

		// Only genuine upstream outages surface. A rejected or unknown
		// email gets the generic response so the endpoint does not reveal
		// which addresses are registered.
		if status, _ := util.HTTPStatus(err); status >= http.StatusInternalServerError {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, MessageResponse{Message: "Password reset email sent"})
		return
	}

	h.record(c, audit.NewEvent(audit.ActionPasswordResetRequest).
		WithMetadata(map[string]interface{}{"email": req.Email}))

	h.notifyPasswordReset(req.Email)

	c.JSON(http.StatusOK, MessageResponse{Message: "Password reset email sent"})
}

// notifyPasswordReset sends the reset notification without blocking the
// request. Failures are logged and dropped.
func (h *AuthHandler) notifyPasswordReset(email string) {
	if _, ok := h.mail.(mailer.NopMailer); ok {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		err := mailer.SendPasswordResetNotice(ctx, h.mail, email, mailer.PasswordResetData{
			Email:    email,
			ResetURL: h.resetURL,
		})
		if err != nil {
			h.logger.Warn("password reset notification failed",
				observability.String("email", email),
				observability.Error(err),
			)
		}
	}()
}

// ResetPassword establishes the recovery session and sets the new
// password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.client.SetSession(c.Request.Context(), req.Token, req.RefreshToken)
	if err != nil {
		h.record(c, audit.NewEvent(audit.ActionPasswordReset).WithError(err))
		respondError(c, err)
		return
	}

	user, err := h.client.UpdateUser(c.Request.Context(), session.AccessToken, provider.UserAttributes{
		Password: req.Password,
	})
	if err != nil {
		h.record(c, audit.NewEvent(audit.ActionPasswordReset).WithError(err))
		respondError(c, err)
		return
	}

	h.record(c, audit.NewEvent(audit.ActionPasswordReset).WithUser(user.ID))

	c.JSON(http.StatusOK, MessageResponse{Message: "Password successfully reset"})
}
