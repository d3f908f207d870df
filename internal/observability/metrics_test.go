package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test")
	require.NotNil(t, m)
	assert.NotNil(t, m.Registry())
}

func TestNewMetricsDefaultNamespace(t *testing.T) {
	m := NewMetrics("")
	assert.NotNil(t, m)
}

func TestRecordRequest(t *testing.T) {
	m := NewMetrics("test")

	m.RecordRequest("POST", "/auth/login", 200, 50*time.Millisecond)
	m.RecordRequest("POST", "/auth/login", 200, 30*time.Millisecond)
	m.RecordRequest("POST", "/auth/login", 401, 10*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(
		m.requestsTotal.WithLabelValues("POST", "/auth/login", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		m.requestsTotal.WithLabelValues("POST", "/auth/login", "401")))
}

func TestActiveRequests(t *testing.T) {
	m := NewMetrics("test")

	m.RequestStarted()
	m.RequestStarted()
	assert.Equal(t, float64(2), testutil.ToFloat64(m.activeRequests))

	m.RequestFinished()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.activeRequests))
}

func TestRecordAuthFailure(t *testing.T) {
	m := NewMetrics("test")

	m.RecordAuthFailure("expired")
	m.RecordAuthFailure("expired")

	assert.Equal(t, float64(2), testutil.ToFloat64(
		m.authFailures.WithLabelValues("expired")))
}

func TestRecordProviderRequest(t *testing.T) {
	m := NewMetrics("test")

	m.RecordProviderRequest("sign_in", "success", 20*time.Millisecond)
	m.RecordProviderRequest("sign_in", "error", 15*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		m.providerRequests.WithLabelValues("sign_in", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		m.providerRequests.WithLabelValues("sign_in", "error")))
}

func TestSetCircuitBreakerState(t *testing.T) {
	m := NewMetrics("test")

	m.SetCircuitBreakerState("provider", 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(
		m.circuitBreaker.WithLabelValues("provider")))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics("test")
	m.SetBuildInfo("1.0.0", "abc123", "2026-01-01")
	m.RecordRateLimitHit("/auth/login")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_build_info")
	assert.Contains(t, rec.Body.String(), "test_rate_limit_hits_total")
}
