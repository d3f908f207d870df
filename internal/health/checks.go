package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisCheck reports whether redis answers a ping.
func NewRedisCheck(client redis.UniversalClient) *HealthCheckFunc {
	return NewHealthCheckFunc("redis", func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		return nil
	})
}

// NewProviderCheck reports whether the identity provider's health
// endpoint is reachable.
func NewProviderCheck(httpClient *http.Client, baseURL, anonKey string) *HealthCheckFunc {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	healthURL := strings.TrimRight(baseURL, "/") + "/auth/v1/health"

	return NewHealthCheckFunc("provider", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return fmt.Errorf("failed to build provider health request: %w", err)
		}
		if anonKey != "" {
			req.Header.Set("apikey", anonKey)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("provider unreachable: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("provider health returned status %d", resp.StatusCode)
		}
		return nil
	})
}
