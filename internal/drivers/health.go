// internal/drivers/health.go
package drivers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HealthStatus is the overall result of a health report
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck checks one component
type HealthCheck func(ctx context.Context) error

// HealthReport contains the overall health status
type HealthReport struct {
	Status    HealthStatus      `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

// HealthChecker runs named checks in parallel, each under its own timeout
type HealthChecker struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheck
	timeout time.Duration
	logger  *zap.Logger
}

// HealthOption configures the health checker
type HealthOption func(*HealthChecker)

// WithCheckTimeout sets the timeout for each check
func WithCheckTimeout(d time.Duration) HealthOption {
	return func(h *HealthChecker) {
		h.timeout = d
	}
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(logger *zap.Logger, opts ...HealthOption) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &HealthChecker{
		checks:  make(map[string]HealthCheck),
		timeout: 5 * time.Second,
		logger:  logger,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// RegisterCheck adds a health check
func (h *HealthChecker) RegisterCheck(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// RegisterBackend checks backend when it exposes HealthCheck
func (h *HealthChecker) RegisterBackend(name string, backend FS) {
	if hc, ok := backend.(interface{ HealthCheck(context.Context) error }); ok {
		h.RegisterCheck(name, hc.HealthCheck)
	}
}

// Check runs all health checks
func (h *HealthChecker) Check(ctx context.Context) *HealthReport {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]HealthCheck, len(names))
	for i, name := range names {
		checks[i] = h.checks[name]
	}
	h.mu.RUnlock()

	results := make([]error, len(names))
	var g errgroup.Group
	for i := range names {
		g.Go(func() error {
			results[i] = h.run(ctx, checks[i])
			return nil
		})
	}
	_ = g.Wait()

	report := &HealthReport{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]string, len(names)),
		Timestamp: time.Now(),
	}
	for i, name := range names {
		if err := results[i]; err != nil {
			report.Checks[name] = fmt.Sprintf("unhealthy: %v", err)
			report.Status = HealthStatusUnhealthy
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			continue
		}
		report.Checks[name] = "healthy"
	}
	return report
}

// run waits for check or its timeout, whichever comes first
func (h *HealthChecker) run(ctx context.Context, check HealthCheck) error {
	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- check(checkCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-checkCtx.Done():
		return fmt.Errorf("timeout after %v", h.timeout)
	}
}

// Handler serves the report as JSON, 503 when any check fails
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status != HealthStatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(report); err != nil {
			h.logger.Debug("write health report", zap.Error(err))
		}
	})
}
