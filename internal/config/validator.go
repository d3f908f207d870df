package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/deltacron/authgate/internal/util"
)

// ValidateConfig checks a loaded configuration for consistency. It returns
// the first problem found as a *util.ValidationError carrying the offending
// field path.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return util.NewValidationError("configuration is nil")
	}

	if err := validateServer(&cfg.Server); err != nil {
		return err
	}
	if err := validateProvider(&cfg.Provider); err != nil {
		return err
	}
	if err := validateJWT(&cfg.JWT); err != nil {
		return err
	}
	if err := validateRateLimit(cfg); err != nil {
		return err
	}
	if err := validateAudit(&cfg.Audit); err != nil {
		return err
	}
	if err := validateMail(cfg.Mail); err != nil {
		return err
	}
	return validateSecrets(&cfg.Secrets)
}

func validateServer(server *ServerConfig) error {
	if server.ListenAddr == "" {
		return fieldError("server.listenAddr", "must not be empty")
	}
	if !strings.Contains(server.ListenAddr, ":") {
		return fieldError("server.listenAddr", "must be host:port or :port")
	}
	if server.MaxRequestBody < 0 {
		return fieldError("server.maxRequestBody", "must not be negative")
	}
	return nil
}

func validateProvider(provider *ProviderConfig) error {
	if provider.URL == "" {
		return fieldError("provider.url", "must not be empty")
	}
	u, err := url.Parse(provider.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fieldError("provider.url", "must be an absolute URL")
	}
	if provider.AnonKey == "" {
		return fieldError("provider.anonKey", "must not be empty")
	}
	if provider.CircuitBreaker.Enabled && provider.CircuitBreaker.Threshold <= 0 {
		return fieldError("provider.circuitBreaker.threshold", "must be positive")
	}
	return nil
}

func validateJWT(jwt *JWTConfig) error {
	switch jwt.Mode {
	case JWTModeLocal:
		if jwt.Secret == "" {
			return fieldError("jwt.secret", "required in local mode")
		}
	case JWTModeRemote:
	default:
		return fieldError("jwt.mode", fmt.Sprintf("unknown mode %q", jwt.Mode))
	}
	if jwt.ClockSkew < 0 {
		return fieldError("jwt.clockSkew", "must not be negative")
	}
	return nil
}

func validateRateLimit(cfg *Config) error {
	rl := cfg.RateLimit
	if rl == nil || !rl.Enabled {
		return nil
	}
	if rl.Requests <= 0 {
		return fieldError("rateLimit.requests", "must be positive")
	}
	if rl.Window <= 0 {
		return fieldError("rateLimit.window", "must be positive")
	}
	return nil
}

func validateAudit(audit *AuditConfig) error {
	if !audit.Enabled {
		return nil
	}
	if audit.QueueSize <= 0 {
		return fieldError("audit.queueSize", "must be positive")
	}
	if audit.Table == "" {
		return fieldError("audit.table", "must not be empty")
	}
	return nil
}

func validateMail(mail *MailConfig) error {
	if mail == nil || !mail.Enabled {
		return nil
	}
	if mail.FromAddress == "" {
		return fieldError("mail.fromAddress", "required when mail is enabled")
	}
	return nil
}

func validateSecrets(secrets *SecretsConfig) error {
	switch secrets.Backend {
	case SecretsBackendEnv:
		return nil
	case SecretsBackendVault:
		if secrets.Vault == nil {
			return fieldError("secrets.vault", "required for vault backend")
		}
		if secrets.Vault.Address == "" {
			return fieldError("secrets.vault.address", "must not be empty")
		}
		if secrets.Vault.Path == "" {
			return fieldError("secrets.vault.path", "must not be empty")
		}
		return nil
	default:
		return fieldError("secrets.backend", fmt.Sprintf("unknown backend %q", secrets.Backend))
	}
}

func fieldError(field, message string) error {
	return util.NewValidationErrorWithFields("invalid configuration", map[string]string{
		field: message,
	})
}
