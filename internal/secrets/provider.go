// Package secrets resolves sensitive configuration values (provider API
// keys, JWT signing secrets, mail API keys) from a pluggable backend.
// Supported backends are environment variables and HashiCorp Vault KV v2.
package secrets

import (
	"context"
	"errors"
	"fmt"
)

// ProviderType identifies a secrets backend.
type ProviderType string

const (
	// ProviderTypeEnv reads secrets from environment variables.
	ProviderTypeEnv ProviderType = "env"
	// ProviderTypeVault reads secrets from HashiCorp Vault.
	ProviderTypeVault ProviderType = "vault"
)

var (
	// ErrSecretNotFound is returned when a secret is not found.
	ErrSecretNotFound = errors.New("secret not found")
	// ErrProviderNotConfigured is returned when the provider is missing
	// required configuration.
	ErrProviderNotConfigured = errors.New("secrets provider not configured")
	// ErrInvalidProviderType is returned for an unknown backend name.
	ErrInvalidProviderType = errors.New("invalid secrets provider type")
)

// Secret is a named bag of key-value secret data.
type Secret struct {
	Name string
	Data map[string]string
}

// GetString returns a value from the secret data.
func (s *Secret) GetString(key string) (string, bool) {
	if s == nil || s.Data == nil {
		return "", false
	}
	v, ok := s.Data[key]
	return v, ok
}

// Provider is the interface for secrets backends.
type Provider interface {
	// Type returns the backend type.
	Type() ProviderType

	// GetSecret retrieves a secret by path. Path format depends on the
	// backend: env providers map "jwt-secret" to an env var, Vault
	// providers treat it as a KV v2 path under the configured mount.
	GetSecret(ctx context.Context, path string) (*Secret, error)

	// HealthCheck reports backend connectivity.
	HealthCheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// ValidateProviderType checks that the given string names a known backend.
func ValidateProviderType(providerType string) (ProviderType, error) {
	switch ProviderType(providerType) {
	case ProviderTypeEnv, ProviderTypeVault:
		return ProviderType(providerType), nil
	default:
		return "", fmt.Errorf("%w: %s, must be one of: env, vault", ErrInvalidProviderType, providerType)
	}
}
