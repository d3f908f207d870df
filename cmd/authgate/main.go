// Command authgate runs the authentication gateway: a thin HTTP facade in
// front of a GoTrue-compatible identity provider.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deltacron/authgate/internal/audit"
	"github.com/deltacron/authgate/internal/auth/jwt"
	"github.com/deltacron/authgate/internal/config"
	"github.com/deltacron/authgate/internal/health"
	"github.com/deltacron/authgate/internal/mailer"
	"github.com/deltacron/authgate/internal/observability"
	"github.com/deltacron/authgate/internal/provider"
	"github.com/deltacron/authgate/internal/ratelimit"
	"github.com/deltacron/authgate/internal/secrets"
	"github.com/deltacron/authgate/internal/server"
)

// Build information, set via ldflags.
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)

	app, err := initApplication(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", observability.Error(err))
	}

	runService(app, flags.configPath, logger)
}

func parseFlags() *cliFlags {
	flags := &cliFlags{}

	flag.StringVar(&flags.configPath, "config",
		getEnvOrDefault("AUTHGATE_CONFIG_PATH", "configs/authgate.yaml"),
		"Path to configuration file")
	flag.StringVar(&flags.logLevel, "log-level",
		getEnvOrDefault("AUTHGATE_LOG_LEVEL", ""),
		"Log level override (debug, info, warn, error)")
	flag.StringVar(&flags.logFormat, "log-format",
		getEnvOrDefault("AUTHGATE_LOG_FORMAT", ""),
		"Log format override (json, console)")
	flag.BoolVar(&flags.showVersion, "version", false, "Show version information")
	flag.Parse()

	return flags
}

func printVersion() {
	fmt.Printf("authgate version %s\n", version)
	fmt.Printf("  build time: %s\n", buildTime)
	fmt.Printf("  git commit: %s\n", gitCommit)
}

func initLogger(flags *cliFlags) observability.Logger {
	logCfg := observability.DefaultLogConfig()
	if flags.logLevel != "" {
		logCfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		logCfg.Format = flags.logFormat
	}

	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	observability.SetGlobalLogger(logger)
	return logger
}

func loadAndValidateConfig(path string, logger observability.Logger) *config.Config {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Fatal("failed to load configuration",
			observability.String("path", path),
			observability.Error(err),
		)
	}
	cfg.ApplyDefaults()

	secretsProvider, err := secrets.NewProvider(cfg.Secrets, logger)
	if err != nil {
		logger.Fatal("failed to initialize secrets backend", observability.Error(err))
	}
	defer func() { _ = secretsProvider.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := secrets.ResolveConfig(ctx, secretsProvider, cfg); err != nil {
		logger.Fatal("failed to resolve secrets", observability.Error(err))
	}

	if err := config.ValidateConfig(cfg); err != nil {
		logger.Fatal("invalid configuration",
			observability.String("path", path),
			observability.Error(err),
		)
	}

	logger.Info("configuration loaded",
		observability.String("path", path),
		observability.String("listenAddr", cfg.Server.ListenAddr),
		observability.String("jwtMode", string(cfg.JWT.Mode)),
		observability.String("secretsBackend", string(cfg.Secrets.Backend)),
	)
	return cfg
}

// application holds the wired components and their shutdown order.
type application struct {
	cfg      *config.Config
	server   *server.Server
	recorder audit.Recorder
	redis    *redis.Client
	tracer   *observability.Tracer
	logger   observability.Logger
}

func initApplication(cfg *config.Config, logger observability.Logger) (*application, error) {
	metrics := observability.NewMetrics("authgate")
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	tracer, err := initTracer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing tracer: %w", err)
	}

	client := provider.NewClient(cfg.Provider.URL, cfg.Provider.AnonKey,
		time.Duration(cfg.Provider.Timeout),
		provider.WithServiceRoleKey(cfg.Provider.ServiceRoleKey),
		provider.WithBreaker(provider.BreakerConfig{
			Enabled:   cfg.Provider.CircuitBreaker.Enabled,
			Threshold: cfg.Provider.CircuitBreaker.Threshold,
			Timeout:   time.Duration(cfg.Provider.CircuitBreaker.Timeout),
		}),
		provider.WithLogger(logger),
		provider.WithMetrics(metrics),
	)

	validator, err := buildValidator(cfg, client)
	if err != nil {
		return nil, fmt.Errorf("initializing token validator: %w", err)
	}

	redisClient := buildRedisClient(cfg)
	limiter := buildLimiter(cfg, redisClient, logger)
	recorder := buildRecorder(cfg, client, logger)
	mail := buildMailer(cfg, logger)

	healthHandler := health.NewHandler(logger)
	healthHandler.AddCheck(health.NewProviderCheck(nil, cfg.Provider.URL, cfg.Provider.AnonKey))
	if redisClient != nil {
		healthHandler.AddCheck(health.NewRedisCheck(redisClient))
	}

	srv, err := server.New(cfg, server.Dependencies{
		Provider:  client,
		Validator: validator,
		Limiter:   limiter,
		Recorder:  recorder,
		Mailer:    mail,
		Health:    healthHandler,
		Logger:    logger,
		Metrics:   metrics,
		Tracer:    tracer,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing server: %w", err)
	}

	return &application{
		cfg:      cfg,
		server:   srv,
		recorder: recorder,
		redis:    redisClient,
		tracer:   tracer,
		logger:   logger,
	}, nil
}

func initTracer(cfg *config.Config, logger observability.Logger) (*observability.Tracer, error) {
	tc := cfg.Observability.Tracing
	if tc == nil || !tc.Enabled {
		return nil, nil
	}

	serviceName := tc.ServiceName
	if serviceName == "" {
		serviceName = "authgate"
	}

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  serviceName,
		OTLPEndpoint: tc.OTLPEndpoint,
		SamplingRate: tc.SamplingRate,
		Enabled:      true,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("tracing enabled",
		observability.String("serviceName", serviceName),
		observability.String("otlpEndpoint", tc.OTLPEndpoint),
	)
	return tracer, nil
}

func buildValidator(cfg *config.Config, client provider.Client) (jwt.Validator, error) {
	if cfg.JWT.Mode == config.JWTModeRemote {
		return jwt.NewRemoteValidator(client), nil
	}
	return jwt.NewLocalValidator(jwt.LocalConfig{
		Secret:    cfg.JWT.Secret,
		Audience:  cfg.JWT.Audience,
		ClockSkew: time.Duration(cfg.JWT.ClockSkew),
	})
}

func buildRedisClient(cfg *config.Config) *redis.Client {
	if cfg.Redis == nil || cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func buildLimiter(cfg *config.Config, redisClient *redis.Client, logger observability.Logger) ratelimit.Limiter {
	if cfg.RateLimit == nil || !cfg.RateLimit.Enabled {
		return ratelimit.NoopLimiter{}
	}

	limit := ratelimit.Limit{
		Requests: cfg.RateLimit.Requests,
		Window:   time.Duration(cfg.RateLimit.Window),
	}

	if redisClient != nil {
		return ratelimit.NewRedisLimiter(redisClient, limit,
			ratelimit.WithRedisLimiterLogger(logger))
	}

	logger.Warn("redis not configured, using in-memory rate limiter")
	return ratelimit.NewMemoryLimiter(limit)
}

func buildRecorder(cfg *config.Config, client provider.Client, logger observability.Logger) audit.Recorder {
	if !cfg.Audit.Enabled {
		return audit.NopRecorder()
	}

	var sink audit.Sink = audit.NewProviderSink(client, cfg.Audit.Table)
	if cfg.Audit.LogFallback {
		sink = audit.NewFallbackSink(sink, audit.NewLogSink(logger))
	}

	return audit.NewRecorder(sink, cfg.Audit.QueueSize,
		audit.WithRecorderLogger(logger))
}

func buildMailer(cfg *config.Config, logger observability.Logger) mailer.Mailer {
	if cfg.Mail == nil || !cfg.Mail.Enabled {
		return mailer.NopMailer{}
	}

	from := cfg.Mail.FromAddress
	if cfg.Mail.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.Mail.FromName, cfg.Mail.FromAddress)
	}

	opts := []mailer.ResendOption{mailer.WithMailerLogger(logger)}
	if cfg.Mail.APIURL != "" {
		opts = append(opts, mailer.WithAPIURL(cfg.Mail.APIURL))
	}

	client, err := mailer.NewResendClient(cfg.Mail.APIKey, from, opts...)
	if err != nil {
		logger.Warn("mail disabled, client initialization failed", observability.Error(err))
		return mailer.NopMailer{}
	}
	return client
}

func runService(app *application, configPath string, logger observability.Logger) {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Start(context.Background())
	}()

	watcher := startConfigWatcher(configPath, logger)

	logger.Info("authgate started",
		observability.String("version", version),
		observability.String("address", app.cfg.Server.ListenAddr),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", observability.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped unexpectedly", observability.Error(err))
		}
	}

	shutdown(app, watcher, logger)
}

// startConfigWatcher hot-reloads the log level on config file changes.
// Structural settings (routes, provider, listeners) require a restart.
func startConfigWatcher(configPath string, logger observability.Logger) *config.Watcher {
	watcher, err := config.NewWatcher(configPath, func(cfg *config.Config) {
		if err := observability.SetLevel(logger, cfg.Observability.Log.Level); err != nil {
			logger.Warn("failed to apply log level from reloaded config",
				observability.Error(err))
			return
		}
		logger.Info("configuration reloaded",
			observability.String("logLevel", cfg.Observability.Log.Level))
	}, config.WithWatcherLogger(logger))
	if err != nil {
		logger.Warn("config hot reload disabled", observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("config hot reload disabled", observability.Error(err))
		return nil
	}
	return watcher
}

func shutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(app.cfg.Server.ShutdownTimeout))
	defer cancel()

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Warn("failed to stop config watcher", observability.Error(err))
		}
	}

	if err := app.server.Stop(ctx); err != nil {
		logger.Error("failed to stop server", observability.Error(err))
	}

	if err := app.recorder.Close(); err != nil {
		logger.Warn("failed to drain audit recorder", observability.Error(err))
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			logger.Warn("failed to close redis client", observability.Error(err))
		}
	}

	if app.tracer != nil {
		if err := app.tracer.Shutdown(ctx); err != nil {
			logger.Warn("failed to shutdown tracer", observability.Error(err))
		}
	}

	logger.Info("authgate stopped")
}

func getEnvOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
