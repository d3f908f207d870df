// Package server assembles the gin engine, middleware chain and routes,
// and manages the HTTP listener lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deltacron/authgate/internal/audit"
	"github.com/deltacron/authgate/internal/auth/jwt"
	"github.com/deltacron/authgate/internal/config"
	"github.com/deltacron/authgate/internal/handler"
	"github.com/deltacron/authgate/internal/health"
	"github.com/deltacron/authgate/internal/mailer"
	"github.com/deltacron/authgate/internal/middleware"
	"github.com/deltacron/authgate/internal/observability"
	"github.com/deltacron/authgate/internal/provider"
	"github.com/deltacron/authgate/internal/ratelimit"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race
// conditions.
var ginModeOnce sync.Once

// Dependencies carries the wired components the server serves.
type Dependencies struct {
	Provider  provider.Client
	Validator jwt.Validator
	Limiter   ratelimit.Limiter
	Recorder  audit.Recorder
	Mailer    mailer.Mailer
	Health    *health.Handler
	Logger    observability.Logger
	Metrics   *observability.Metrics
	Tracer    *observability.Tracer
}

// Server is the HTTP front of the auth service.
type Server struct {
	cfg        *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	opsServer  *http.Server
	logger     observability.Logger
	metrics    *observability.Metrics
	mu         sync.RWMutex
	running    bool
}

// New builds the engine, middleware chain and routes.
func New(cfg *config.Config, deps Dependencies) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Provider == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	if deps.Validator == nil {
		return nil, fmt.Errorf("token validator is required")
	}
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger()
	}

	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		engine:  engine,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}

	s.applyMiddleware(deps)
	s.registerRoutes(deps)

	return s, nil
}

func (s *Server) applyMiddleware(deps Dependencies) {
	s.engine.Use(middleware.Recovery(deps.Logger))
	s.engine.Use(middleware.RequestID())
	if deps.Tracer != nil {
		s.engine.Use(middleware.Tracing(deps.Tracer))
	}
	s.engine.Use(middleware.Logging(deps.Logger))
	if deps.Metrics != nil {
		s.engine.Use(middleware.Metrics(deps.Metrics))
	}
	if s.cfg.CORS != nil {
		s.engine.Use(middleware.CORS(s.cfg.CORS))
	}
	if s.cfg.Server.MaxRequestBody > 0 {
		limit := s.cfg.Server.MaxRequestBody
		s.engine.Use(func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
			c.Next()
		})
	}
}

func (s *Server) registerRoutes(deps Dependencies) {
	resetURL := ""
	if s.cfg.Mail != nil {
		resetURL = s.cfg.Mail.ResetURL
	}

	authHandler := handler.NewAuthHandler(deps.Provider,
		handler.WithAuditRecorder(deps.Recorder),
		handler.WithMailer(deps.Mailer, resetURL),
		handler.WithHandlerLogger(deps.Logger),
	)
	userHandler := handler.NewUserHandler(deps.Provider,
		handler.WithUserAuditRecorder(deps.Recorder),
		handler.WithUserLogger(deps.Logger),
	)

	requireAuth := middleware.Auth(deps.Validator, jwt.DefaultExtractor(), deps.Logger, deps.Metrics)
	limited := middleware.RateLimit(deps.Limiter, deps.Logger, deps.Metrics)

	authGroup := s.engine.Group("/auth")
	{
		authGroup.POST("/login", limited, authHandler.Login)
		authGroup.POST("/register", limited, authHandler.Register)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/forgot-password", limited, authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
		authGroup.POST("/logout", requireAuth, authHandler.Logout)
		authGroup.GET("/me", requireAuth, authHandler.Me)
	}

	userGroup := s.engine.Group("/user", requireAuth)
	{
		userGroup.GET("/profile", userHandler.GetProfile)
		userGroup.PUT("/profile", userHandler.UpdateProfile)
		userGroup.DELETE("/", userHandler.DeleteUser)
	}

	if deps.Health != nil {
		deps.Health.RegisterRoutes(s.engine)
	}
}

// Engine returns the underlying gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start runs the HTTP listener and, when configured, a separate ops
// listener for /metrics. Blocks until the listener stops.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}

	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.ListenAddr,
		Handler:      s.engine,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout),
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeout),
	}
	s.running = true
	s.mu.Unlock()

	s.startOpsListener()

	s.logger.Info("starting HTTP server",
		observability.String("address", s.cfg.Server.ListenAddr),
		observability.Duration("readTimeout", time.Duration(s.cfg.Server.ReadTimeout)),
		observability.Duration("writeTimeout", time.Duration(s.cfg.Server.WriteTimeout)),
	)

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) startOpsListener() {
	mc := s.cfg.Observability.Metrics
	if mc == nil || !mc.Enabled || s.metrics == nil {
		return
	}

	mux := http.NewServeMux()
	mux.Handle(mc.Path, s.metrics.Handler())

	s.mu.Lock()
	s.opsServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", mc.Port),
		Handler:     mux,
		ReadTimeout: time.Duration(s.cfg.Server.ReadTimeout),
	}
	ops := s.opsServer
	s.mu.Unlock()

	go func() {
		s.logger.Info("starting ops listener",
			observability.String("address", ops.Addr),
			observability.String("path", mc.Path),
		)
		if err := ops.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("ops listener error", observability.Error(err))
		}
	}()
}

// Stop shuts down the listeners gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	httpServer := s.httpServer
	opsServer := s.opsServer
	s.mu.Unlock()

	s.logger.Info("stopping HTTP server")

	if opsServer != nil {
		if err := opsServer.Shutdown(ctx); err != nil {
			s.logger.Warn("ops listener shutdown failed", observability.Error(err))
		}
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning reports whether Start has been called and not yet stopped.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
