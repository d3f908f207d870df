// Package config provides configuration loading, validation and hot reload
// for the auth service.
package config

import "time"

// Default server values.
const (
	DefaultListenAddr        = ":8080"
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultMaxRequestBody    = 1 << 20 // 1 MiB
	DefaultProviderTimeout   = 10 * time.Second
	DefaultJWTClockSkew      = 30 * time.Second
	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = time.Minute
	DefaultAuditQueueSize    = 1024
	DefaultAuditTable        = "audit_logs"
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
)

// Config is the root configuration for the auth service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Provider      ProviderConfig      `yaml:"provider"`
	JWT           JWTConfig           `yaml:"jwt"`
	Redis         *RedisConfig        `yaml:"redis,omitempty"`
	RateLimit     *RateLimitConfig    `yaml:"rateLimit,omitempty"`
	CORS          *CORSConfig         `yaml:"cors,omitempty"`
	Audit         AuditConfig         `yaml:"audit"`
	Mail          *MailConfig         `yaml:"mail,omitempty"`
	Secrets       SecretsConfig       `yaml:"secrets"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ListenAddr      string   `yaml:"listenAddr"`
	ReadTimeout     Duration `yaml:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout"`
	IdleTimeout     Duration `yaml:"idleTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
	MaxRequestBody  int64    `yaml:"maxRequestBody"`
	TrustedProxies  []string `yaml:"trustedProxies,omitempty"`
}

// ProviderConfig holds identity provider connection settings.
type ProviderConfig struct {
	// URL is the base URL of the GoTrue-compatible provider.
	URL string `yaml:"url"`
	// AnonKey is the public API key sent with user-scoped calls.
	AnonKey string `yaml:"anonKey"`
	// ServiceRoleKey authorizes admin calls (user deletion, audit inserts).
	ServiceRoleKey string   `yaml:"serviceRoleKey"`
	Timeout        Duration `yaml:"timeout"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// CircuitBreakerConfig holds circuit breaker settings for provider calls.
type CircuitBreakerConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Threshold int      `yaml:"threshold"`
	Timeout   Duration `yaml:"timeout"`
}

// JWTMode selects how bearer tokens are verified.
type JWTMode string

// Supported verification modes.
const (
	// JWTModeLocal verifies token signatures in-process with the shared secret.
	JWTModeLocal JWTMode = "local"
	// JWTModeRemote delegates verification to the provider's user endpoint.
	JWTModeRemote JWTMode = "remote"
)

// JWTConfig holds token verification settings.
type JWTConfig struct {
	Mode      JWTMode  `yaml:"mode"`
	Secret    string   `yaml:"secret"`
	Audience  string   `yaml:"audience,omitempty"`
	ClockSkew Duration `yaml:"clockSkew"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

// RateLimitConfig holds request rate limiting settings for credential
// endpoints.
type RateLimitConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	AllowOrigins     []string `yaml:"allowOrigins"`
	AllowMethods     []string `yaml:"allowMethods,omitempty"`
	AllowHeaders     []string `yaml:"allowHeaders,omitempty"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           Duration `yaml:"maxAge,omitempty"`
}

// AuditConfig holds audit trail settings.
type AuditConfig struct {
	Enabled   bool   `yaml:"enabled"`
	QueueSize int    `yaml:"queueSize"`
	Table     string `yaml:"table"`
	// LogFallback writes events through the structured logger when the
	// provider sink is unavailable.
	LogFallback bool `yaml:"logFallback"`
}

// MailConfig holds outbound mail settings.
type MailConfig struct {
	Enabled     bool   `yaml:"enabled"`
	APIURL      string `yaml:"apiUrl,omitempty"`
	APIKey      string `yaml:"apiKey,omitempty"`
	FromAddress string `yaml:"fromAddress"`
	FromName    string `yaml:"fromName,omitempty"`
	TemplateDir string `yaml:"templateDir,omitempty"`
	ResetURL    string `yaml:"resetUrl,omitempty"`
}

// SecretsBackend selects where sensitive settings are resolved from.
type SecretsBackend string

// Supported secrets backends.
const (
	SecretsBackendEnv   SecretsBackend = "env"
	SecretsBackendVault SecretsBackend = "vault"
)

// SecretsConfig holds secret resolution settings.
type SecretsConfig struct {
	Backend SecretsBackend `yaml:"backend"`
	Vault   *VaultConfig   `yaml:"vault,omitempty"`
}

// VaultConfig holds HashiCorp Vault connection settings.
type VaultConfig struct {
	Address string `yaml:"address"`
	Token   string `yaml:"token,omitempty"`
	Mount   string `yaml:"mount"`
	Path    string `yaml:"path"`
}

// ObservabilityConfig holds logging, metrics and tracing settings.
type ObservabilityConfig struct {
	Log     LogConfig      `yaml:"log"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
	Tracing *TracingConfig `yaml:"tracing,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds the ops listener settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty"`
	ServiceName  string  `yaml:"serviceName,omitempty"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// DefaultConfig returns a configuration populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      DefaultListenAddr,
			ReadTimeout:     Duration(DefaultReadTimeout),
			WriteTimeout:    Duration(DefaultWriteTimeout),
			IdleTimeout:     Duration(DefaultIdleTimeout),
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
			MaxRequestBody:  DefaultMaxRequestBody,
		},
		Provider: ProviderConfig{
			Timeout: Duration(DefaultProviderTimeout),
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:   true,
				Threshold: 5,
				Timeout:   Duration(30 * time.Second),
			},
		},
		JWT: JWTConfig{
			Mode:      JWTModeLocal,
			ClockSkew: Duration(DefaultJWTClockSkew),
		},
		Audit: AuditConfig{
			Enabled:     true,
			QueueSize:   DefaultAuditQueueSize,
			Table:       DefaultAuditTable,
			LogFallback: true,
		},
		Secrets: SecretsConfig{
			Backend: SecretsBackendEnv,
		},
		Observability: ObservabilityConfig{
			Log: LogConfig{Level: "info", Format: "json"},
		},
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(DefaultReadTimeout)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(DefaultWriteTimeout)
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = Duration(DefaultIdleTimeout)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if c.Server.MaxRequestBody == 0 {
		c.Server.MaxRequestBody = DefaultMaxRequestBody
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = Duration(DefaultProviderTimeout)
	}
	if c.JWT.Mode == "" {
		c.JWT.Mode = JWTModeLocal
	}
	if c.JWT.ClockSkew == 0 {
		c.JWT.ClockSkew = Duration(DefaultJWTClockSkew)
	}
	if c.RateLimit != nil && c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = DefaultRateLimitRequests
	}
	if c.RateLimit != nil && c.RateLimit.Window == 0 {
		c.RateLimit.Window = Duration(DefaultRateLimitWindow)
	}
	if c.Audit.QueueSize == 0 {
		c.Audit.QueueSize = DefaultAuditQueueSize
	}
	if c.Audit.Table == "" {
		c.Audit.Table = DefaultAuditTable
	}
	if c.Secrets.Backend == "" {
		c.Secrets.Backend = SecretsBackendEnv
	}
	if c.Observability.Log.Level == "" {
		c.Observability.Log.Level = "info"
	}
	if c.Observability.Log.Format == "" {
		c.Observability.Log.Format = "json"
	}
	if c.Observability.Metrics != nil {
		if c.Observability.Metrics.Port == 0 {
			c.Observability.Metrics.Port = DefaultMetricsPort
		}
		if c.Observability.Metrics.Path == "" {
			c.Observability.Metrics.Path = DefaultMetricsPath
		}
	}
}
