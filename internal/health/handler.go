// Package health provides liveness and readiness probe endpoints.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deltacron/authgate/internal/observability"
)

// Probe timeouts.
const (
	DefaultReadinessTimeout = 5 * time.Second
	DefaultHealthTimeout    = 10 * time.Second
)

// HealthCheck is a named dependency check.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthCheckFunc adapts a function to the HealthCheck interface.
type HealthCheckFunc struct {
	name      string
	checkFunc func(ctx context.Context) error
}

// NewHealthCheckFunc creates a named check from a function.
func NewHealthCheckFunc(name string, check func(ctx context.Context) error) *HealthCheckFunc {
	return &HealthCheckFunc{name: name, checkFunc: check}
}

// Name returns the check name.
func (f *HealthCheckFunc) Name() string { return f.name }

// Check runs the check.
func (f *HealthCheckFunc) Check(ctx context.Context) error { return f.checkFunc(ctx) }

// HealthStatus is the aggregate probe response.
type HealthStatus struct {
	Status    string                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Uptime    string                  `json:"uptime,omitempty"`
	Checks    map[string]*CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one dependency check.
type CheckResult struct {
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Duration  string    `json:"duration,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler serves the probe endpoints.
type Handler struct {
	checks    []HealthCheck
	logger    observability.Logger
	mu        sync.RWMutex
	startTime time.Time
}

// NewHandler creates a probe handler.
func NewHandler(logger observability.Logger) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Handler{
		checks:    make([]HealthCheck, 0),
		logger:    logger,
		startTime: time.Now(),
	}
}

// AddCheck registers a dependency check.
func (h *Handler) AddCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// LivenessHandler reports that the process is running.
func (h *Handler) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	}
}

// ReadinessHandler runs dependency checks and reports whether the
// service can take traffic.
func (h *Handler) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultReadinessTimeout)
		defer cancel()

		status := h.runChecks(ctx)

		statusCode := http.StatusOK
		if status.Status != "ok" {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, status)
	}
}

// HealthHandler runs dependency checks and includes uptime.
func (h *Handler) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultHealthTimeout)
		defer cancel()

		status := h.runChecks(ctx)
		status.Uptime = time.Since(h.startTime).Round(time.Second).String()

		statusCode := http.StatusOK
		if status.Status != "ok" {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, status)
	}
}

// RegisterRoutes registers probe routes on a gin engine.
func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/health", h.HealthHandler())
	engine.GET("/healthz", h.LivenessHandler())
	engine.GET("/readyz", h.ReadinessHandler())
}

func (h *Handler) runChecks(ctx context.Context) *HealthStatus {
	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := &HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]*CheckResult),
	}

	if len(checks) == 0 {
		return status
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, check := range checks {
		wg.Add(1)
		go func(c HealthCheck) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			duration := time.Since(start)

			result := &CheckResult{
				Status:    "ok",
				Duration:  duration.String(),
				Timestamp: time.Now().UTC(),
			}

			if err != nil {
				result.Status = "error"
				result.Error = err.Error()

				mu.Lock()
				status.Status = "error"
				mu.Unlock()

				h.logger.Warn("health check failed",
					observability.String("check", c.Name()),
					observability.Error(err),
					observability.Duration("duration", duration),
				)
			}

			mu.Lock()
			status.Checks[c.Name()] = result
			mu.Unlock()
		}(check)
	}

	wg.Wait()
	return status
}
