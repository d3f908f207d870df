package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/deltacron/authgate/internal/observability"
)

// DefaultEnvPrefix is the default prefix for environment variable secrets.
const DefaultEnvPrefix = "AUTHGATE_SECRET_"

// EnvProvider resolves secrets from environment variables. The path
// "jwt-secret" maps to "{PREFIX}JWT_SECRET". JSON-encoded values are
// expanded into multiple keys; anything else is stored under "value".
type EnvProvider struct {
	prefix string
	logger observability.Logger
}

// EnvProviderOption configures an EnvProvider.
type EnvProviderOption func(*EnvProvider)

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) EnvProviderOption {
	return func(p *EnvProvider) {
		p.prefix = prefix
	}
}

// WithEnvLogger sets the logger.
func WithEnvLogger(logger observability.Logger) EnvProviderOption {
	return func(p *EnvProvider) {
		p.logger = logger
	}
}

// NewEnvProvider creates an environment variable secrets provider.
func NewEnvProvider(opts ...EnvProviderOption) *EnvProvider {
	p := &EnvProvider{
		prefix: DefaultEnvPrefix,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Type implements Provider.
func (p *EnvProvider) Type() ProviderType {
	return ProviderTypeEnv
}

func (p *EnvProvider) envName(path string) string {
	name := strings.ToUpper(path)
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, ".", "_")
	name = strings.ReplaceAll(name, "/", "_")
	return p.prefix + name
}

// GetSecret implements Provider.
func (p *EnvProvider) GetSecret(_ context.Context, path string) (*Secret, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrSecretNotFound)
	}

	envName := p.envName(path)
	value, exists := os.LookupEnv(envName)
	if !exists {
		return nil, fmt.Errorf("%w: environment variable %s not set", ErrSecretNotFound, envName)
	}

	data := make(map[string]string)

	var jsonData map[string]interface{}
	if err := json.Unmarshal([]byte(value), &jsonData); err == nil && len(jsonData) > 0 {
		for k, v := range jsonData {
			switch val := v.(type) {
			case string:
				data[k] = val
			default:
				raw, err := json.Marshal(val)
				if err != nil {
					continue
				}
				data[k] = string(raw)
			}
		}
	} else {
		data["value"] = value
	}

	p.logger.Debug("resolved secret from environment",
		observability.String("path", path),
		observability.String("envVar", envName),
	)

	return &Secret{Name: path, Data: data}, nil
}

// HealthCheck implements Provider. Environment variables are always
// reachable.
func (p *EnvProvider) HealthCheck(context.Context) error {
	return nil
}

// Close implements Provider.
func (p *EnvProvider) Close() error {
	return nil
}
