package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/deltacron/authgate/internal/auth/jwt"
	"github.com/deltacron/authgate/internal/observability"
	"github.com/deltacron/authgate/internal/util"
)

// Auth verifies the bearer token on protected routes and stores the
// resulting identity and raw token in the gin context.
func Auth(validator jwt.Validator, extractor jwt.TokenExtractor, logger observability.Logger, metrics *observability.Metrics) gin.HandlerFunc {
	if extractor == nil {
		extractor = jwt.DefaultExtractor()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(c *gin.Context) {
		token, err := extractor.Extract(c.Request)
		if err != nil {
			if metrics != nil {
				metrics.RecordAuthFailure("missing_token")
			}
			status, kind := util.HTTPStatus(util.NewAuthenticationErrorWithCause("missing or malformed authorization header", err))
			c.AbortWithStatusJSON(status, gin.H{
				"error":   kind,
				"message": "missing or malformed authorization header",
			})
			return
		}

		identity, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			if metrics != nil {
				metrics.RecordAuthFailure("invalid_token")
			}
			logger.Debug("token rejected",
				observability.String("path", c.Request.URL.Path),
				observability.Error(err),
			)
			status, kind := util.HTTPStatus(err)
			c.AbortWithStatusJSON(status, gin.H{
				"error":   kind,
				"message": detailOf(err),
			})
			return
		}

		c.Set(ContextKeyIdentity, identity)
		c.Set(ContextKeyToken, token)
		c.Next()
	}
}

func detailOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// IdentityFromContext returns the verified identity stored by Auth.
func IdentityFromContext(c *gin.Context) (*jwt.Identity, bool) {
	v, ok := c.Get(ContextKeyIdentity)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*jwt.Identity)
	return identity, ok
}

// TokenFromContext returns the raw bearer token stored by Auth.
func TokenFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextKeyToken)
	if !ok {
		return "", false
	}
	token, ok := v.(string)
	return token, ok
}
