package secrets

import (
	"fmt"

	"github.com/deltacron/authgate/internal/config"
	"github.com/deltacron/authgate/internal/observability"
)

// NewProvider creates a secrets provider from configuration.
func NewProvider(cfg config.SecretsConfig, logger observability.Logger) (Provider, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	switch cfg.Backend {
	case config.SecretsBackendEnv, "":
		return NewEnvProvider(WithEnvLogger(logger)), nil

	case config.SecretsBackendVault:
		if cfg.Vault == nil {
			return nil, fmt.Errorf("%w: vault backend selected but vault settings missing", ErrProviderNotConfigured)
		}
		return NewVaultProvider(&VaultConfig{
			Address: cfg.Vault.Address,
			Token:   cfg.Vault.Token,
			Mount:   cfg.Vault.Mount,
			Logger:  logger,
		})

	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProviderType, cfg.Backend)
	}
}
