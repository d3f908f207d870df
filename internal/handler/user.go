package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deltacron/authgate/internal/audit"
	"github.com/deltacron/authgate/internal/middleware"
	"github.com/deltacron/authgate/internal/observability"
	"github.com/deltacron/authgate/internal/provider"
	"github.com/deltacron/authgate/internal/util"
)

// UserHandler serves the /user endpoints. All routes are protected.
type UserHandler struct {
	client   provider.Client
	recorder audit.Recorder
	logger   observability.Logger
}

// UserOption configures a UserHandler.
type UserOption func(*UserHandler)

// WithUserAuditRecorder sets the audit recorder.
func WithUserAuditRecorder(recorder audit.Recorder) UserOption {
	return func(h *UserHandler) {
		if recorder != nil {
			h.recorder = recorder
		}
	}
}

// WithUserLogger sets the logger.
func WithUserLogger(logger observability.Logger) UserOption {
	return func(h *UserHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewUserHandler creates the /user endpoint handler.
func NewUserHandler(client provider.Client, opts ...UserOption) *UserHandler {
	h := &UserHandler{
		client:   client,
		recorder: audit.NopRecorder(),
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *UserHandler) record(c *gin.Context, event *audit.Event) {
	event.WithClient(c.ClientIP(), c.Request.UserAgent()).
		WithRequestID(observability.RequestIDFromContext(c.Request.Context()))
	h.recorder.Record(event)
}

// GetProfile returns the authenticated user's profile metadata.
func (h *UserHandler) GetProfile(c *gin.Context) {
	token, _ := middleware.TokenFromContext(c)
	identity, _ := middleware.IdentityFromContext(c)

	user, err := h.client.GetUser(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}

	event := audit.NewEvent(audit.ActionProfileRead).WithResource("user", user.ID)
	if identity != nil {
		event.WithUser(identity.UserID)
	}
	h.record(c, event)

	c.JSON(http.StatusOK, profileResponse(user))
}

// UpdateProfile merges the supplied fields into the user's metadata. An
// update with no fields is a validation error.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	data := make(map[string]interface{})
	if req.Username != "" {
		data["username"] = req.Username
	}
	if req.FullName != "" {
		data["full_name"] = req.FullName
	}
	if req.AvatarURL != "" {
		data["avatar_url"] = req.AvatarURL
	}
	if len(data) == 0 {
		respondError(c, util.NewValidationError("no profile data provided for update"))
		return
	}

	token, _ := middleware.TokenFromContext(c)
	identity, _ := middleware.IdentityFromContext(c)

	user, err := h.client.UpdateUser(c.Request.Context(), token, provider.UserAttributes{Data: data})
	if err != nil {
		event := audit.NewEvent(audit.ActionProfileUpdate).WithError(err)
		if identity != nil {
			event.WithUser(identity.UserID).WithResource("user", identity.UserID)
		}
		h.record(c, event)
		respondError(c, err)
		return
	}

	h.record(c, audit.NewEvent(audit.ActionProfileUpdate).
		WithUser(user.ID).
		WithResource("user", user.ID).
		WithMetadata(map[string]interface{}{"updated_fields": keysOf(data)}))

	c.JSON(http.StatusOK, ProfileUpdateResponse{
		Status: "success",
		User:   profileResponse(user),
	})
}

// DeleteUser removes the authenticated user's account through the
// provider's admin API.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		respondError(c, util.NewAuthenticationError("not authenticated"))
		return
	}

	if err := h.client.AdminDeleteUser(c.Request.Context(), identity.UserID); err != nil {
		h.record(c, audit.NewEvent(audit.ActionUserDelete).
			WithUser(identity.UserID).
			WithResource("user", identity.UserID).
			WithError(err))
		respondError(c, err)
		return
	}

	h.record(c, audit.NewEvent(audit.ActionUserDelete).
		WithUser(identity.UserID).
		WithResource("user", identity.UserID))

	c.JSON(http.StatusOK, StatusResponse{
		Status:  "success",
		Message: "User deleted successfully",
	})
}

func keysOf(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
