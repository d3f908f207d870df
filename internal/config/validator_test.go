package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/deltacron/authgate/internal/util"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Provider.URL = "https://id.example.com"
	cfg.Provider.AnonKey = "anon"
	cfg.JWT.Secret = "secret"
	return cfg
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, ValidateConfig(validConfig()))
}

func TestValidateConfigNil(t *testing.T) {
	err := ValidateConfig(nil)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrInvalidInput))
}

func TestValidateConfigFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			"empty listen addr",
			func(c *Config) { c.Server.ListenAddr = "x" },
			"server.listenAddr",
		},
		{
			"negative body limit",
			func(c *Config) { c.Server.MaxRequestBody = -1 },
			"server.maxRequestBody",
		},
		{
			"missing provider url",
			func(c *Config) { c.Provider.URL = "" },
			"provider.url",
		},
		{
			"relative provider url",
			func(c *Config) { c.Provider.URL = "id.example.com/auth" },
			"provider.url",
		},
		{
			"missing anon key",
			func(c *Config) { c.Provider.AnonKey = "" },
			"provider.anonKey",
		},
		{
			"breaker threshold",
			func(c *Config) { c.Provider.CircuitBreaker.Threshold = 0 },
			"provider.circuitBreaker.threshold",
		},
		{
			"local mode without secret",
			func(c *Config) { c.JWT.Secret = "" },
			"jwt.secret",
		},
		{
			"unknown jwt mode",
			func(c *Config) { c.JWT.Mode = "hybrid" },
			"jwt.mode",
		},
		{
			"rate limit without requests",
			func(c *Config) {
				c.RateLimit = &RateLimitConfig{Enabled: true, Window: Duration(time.Minute)}
			},
			"rateLimit.requests",
		},
		{
			"rate limit without window",
			func(c *Config) {
				c.RateLimit = &RateLimitConfig{Enabled: true, Requests: 5}
			},
			"rateLimit.window",
		},
		{
			"audit without queue",
			func(c *Config) { c.Audit.QueueSize = 0 },
			"audit.queueSize",
		},
		{
			"mail without sender",
			func(c *Config) { c.Mail = &MailConfig{Enabled: true} },
			"mail.fromAddress",
		},
		{
			"vault backend without settings",
			func(c *Config) { c.Secrets.Backend = SecretsBackendVault },
			"secrets.vault",
		},
		{
			"unknown secrets backend",
			func(c *Config) { c.Secrets.Backend = "keychain" },
			"secrets.backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			assert.Error(t, err)

			var vErr *util.ValidationError
			assert.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Fields, tt.field)
		})
	}
}

func TestValidateRemoteModeNoSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.Mode = JWTModeRemote
	cfg.JWT.Secret = ""
	assert.NoError(t, ValidateConfig(cfg))
}

func TestValidateVaultBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Secrets.Backend = SecretsBackendVault
	cfg.Secrets.Vault = &VaultConfig{
		Address: "https://vault.example.com",
		Mount:   "secret",
		Path:    "authgate",
	}
	assert.NoError(t, ValidateConfig(cfg))
}
