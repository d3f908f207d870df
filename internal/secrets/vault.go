package secrets

import (
	"context"
	"fmt"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/deltacron/authgate/internal/observability"
)

// VaultConfig holds configuration for the Vault secrets provider.
type VaultConfig struct {
	// Address is the Vault server address.
	Address string
	// Token is the Vault token. Token auth only; the service runs
	// outside Kubernetes so no kubernetes auth method is wired.
	Token string
	// Mount is the KV v2 secrets engine mount point. Default "secret".
	Mount string
	// Timeout is the request timeout. Default 10s.
	Timeout time.Duration
	// Logger is the logger instance.
	Logger observability.Logger
}

// VaultProvider resolves secrets from HashiCorp Vault KV v2.
type VaultProvider struct {
	client *vaultapi.Client
	mount  string
	logger observability.Logger
}

// NewVaultProvider creates a Vault secrets provider.
func NewVaultProvider(cfg *VaultConfig) (*VaultProvider, error) {
	if cfg == nil || cfg.Address == "" {
		return nil, fmt.Errorf("%w: vault address is required", ErrProviderNotConfigured)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: vault token is required", ErrProviderNotConfigured)
	}

	mount := cfg.Mount
	if mount == "" {
		mount = "secret"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	apiConfig := vaultapi.DefaultConfig()
	apiConfig.Address = cfg.Address
	apiConfig.Timeout = timeout

	client, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	logger.Info("vault secrets provider initialized",
		observability.String("address", cfg.Address),
		observability.String("mount", mount),
	)

	return &VaultProvider{
		client: client,
		mount:  mount,
		logger: logger,
	}, nil
}

// Type implements Provider.
func (p *VaultProvider) Type() ProviderType {
	return ProviderTypeVault
}

// GetSecret implements Provider reading the KV v2 path under the
// configured mount.
func (p *VaultProvider) GetSecret(ctx context.Context, path string) (*Secret, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrSecretNotFound)
	}

	kvSecret, err := p.client.KVv2(p.mount).Get(ctx, path)
	if err != nil {
		p.logger.Error("failed to read secret from vault",
			observability.String("path", path),
			observability.Error(err),
		)
		return nil, fmt.Errorf("failed to read secret from vault: %w", err)
	}
	if kvSecret == nil || kvSecret.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
	}

	data := make(map[string]string, len(kvSecret.Data))
	for k, v := range kvSecret.Data {
		if s, ok := v.(string); ok {
			data[k] = s
		}
	}

	p.logger.Debug("resolved secret from vault",
		observability.String("path", path),
		observability.Int("keys", len(data)),
	)

	return &Secret{Name: path, Data: data}, nil
}

// HealthCheck implements Provider.
func (p *VaultProvider) HealthCheck(ctx context.Context) error {
	health, err := p.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}

// Close implements Provider.
func (p *VaultProvider) Close() error {
	return nil
}
