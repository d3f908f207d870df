package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/deltacron/authgate/internal/config"
)

// DefaultSecretPath is the secret path consulted when the config does not
// name one.
const DefaultSecretPath = "authgate"

// ResolveConfig overlays sensitive settings from the secrets backend onto
// config fields left empty in the file. Keys mirror the config structure:
// provider_anon_key, provider_service_role_key, jwt_secret, mail_api_key,
// redis_password. A missing secret is not an error since the config may
// carry the values directly.
func ResolveConfig(ctx context.Context, p Provider, cfg *config.Config) error {
	if p == nil || cfg == nil {
		return nil
	}

	path := DefaultSecretPath
	if cfg.Secrets.Vault != nil && cfg.Secrets.Vault.Path != "" {
		path = cfg.Secrets.Vault.Path
	}

	secret, err := p.GetSecret(ctx, path)
	if err != nil {
		if errors.Is(err, ErrSecretNotFound) {
			return nil
		}
		return fmt.Errorf("resolving secrets at %q: %w", path, err)
	}

	overlay := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, ok := secret.GetString(key); ok && v != "" {
			*dst = v
		}
	}

	overlay(&cfg.Provider.AnonKey, "provider_anon_key")
	overlay(&cfg.Provider.ServiceRoleKey, "provider_service_role_key")
	overlay(&cfg.JWT.Secret, "jwt_secret")
	if cfg.Mail != nil {
		overlay(&cfg.Mail.APIKey, "mail_api_key")
	}
	if cfg.Redis != nil {
		overlay(&cfg.Redis.Password, "redis_password")
	}
	return nil
}
