// internal/drivers/retry.go
package drivers

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy defines how to retry failed operations
type RetryPolicy struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	jitter       bool
	logger       *zap.Logger
}

// RetryOption configures retry behavior
type RetryOption func(*RetryPolicy)

// WithMaxAttempts sets maximum retry attempts
func WithMaxAttempts(n int) RetryOption {
	return func(p *RetryPolicy) {
		p.maxAttempts = n
	}
}

// WithInitialDelay sets the initial retry delay
func WithInitialDelay(d time.Duration) RetryOption {
	return func(p *RetryPolicy) {
		p.initialDelay = d
	}
}

// WithMaxDelay sets the maximum retry delay
func WithMaxDelay(d time.Duration) RetryOption {
	return func(p *RetryPolicy) {
		p.maxDelay = d
	}
}

// WithJitter enables jitter to prevent thundering herd
func WithJitter(enabled bool) RetryOption {
	return func(p *RetryPolicy) {
		p.jitter = enabled
	}
}

// WithLogger adds logging to retry attempts
func WithLogger(logger *zap.Logger) RetryOption {
	return func(p *RetryPolicy) {
		p.logger = logger
	}
}

// NewRetryPolicy creates a new retry policy
func NewRetryPolicy(opts ...RetryOption) *RetryPolicy {
	p := &RetryPolicy{
		maxAttempts:  3,
		initialDelay: 100 * time.Millisecond,
		maxDelay:     5 * time.Second,
		multiplier:   2.0,
		jitter:       true,
		logger:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(p)
	}
	if p.maxAttempts < 1 {
		p.maxAttempts = 1
	}

	return p
}

// Execute runs fn until it succeeds, fails permanently or runs out of
// attempts. Missing files and cancellation are permanent.
func (p *RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn()
		if err == nil {
			if attempt > 0 {
				p.logger.Debug("operation succeeded after retry",
					zap.Int("attempt", attempt+1),
					zap.Int("maxAttempts", p.maxAttempts))
			}
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err

		if attempt == p.maxAttempts-1 {
			break
		}

		delay := p.calculateDelay(attempt)
		p.logger.Debug("operation failed, retrying",
			zap.Error(lastErr),
			zap.Int("attempt", attempt+1),
			zap.Int("maxAttempts", p.maxAttempts),
			zap.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	p.logger.Warn("operation failed after all retries",
		zap.Error(lastErr),
		zap.Int("attempts", p.maxAttempts))

	return lastErr
}

// calculateDelay computes the delay for the given attempt
func (p *RetryPolicy) calculateDelay(attempt int) time.Duration {
	// Exponential backoff: delay = initial * (multiplier ^ attempt)
	delay := float64(p.initialDelay) * math.Pow(p.multiplier, float64(attempt))

	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}

	// Jitter between 0.5x and 1.5x the delay
	if p.jitter {
		delay = delay * (0.5 + rand.Float64())
	}

	return time.Duration(delay)
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission),
		errors.Is(err, fs.ErrInvalid),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// RetryDriver retries the primitives of a remote backend on transient errors
type RetryDriver struct {
	backend FS
	policy  *RetryPolicy
}

// NewRetryDriver wraps backend with policy
func NewRetryDriver(backend FS, policy *RetryPolicy) *RetryDriver {
	return &RetryDriver{
		backend: backend,
		policy:  policy,
	}
}

func (r *RetryDriver) Stat(ctx context.Context, name string) (fs.FileInfo, error) {
	var info fs.FileInfo
	err := r.policy.Execute(ctx, func() error {
		var err error
		info, err = r.backend.Stat(ctx, name)
		return err
	})
	return info, err
}

func (r *RetryDriver) Lstat(ctx context.Context, name string) (fs.FileInfo, error) {
	var info fs.FileInfo
	err := r.policy.Execute(ctx, func() error {
		var err error
		info, err = r.backend.Lstat(ctx, name)
		return err
	})
	return info, err
}

func (r *RetryDriver) ReadDir(ctx context.Context, name string) ([]fs.DirEntry, error) {
	var entries []fs.DirEntry
	err := r.policy.Execute(ctx, func() error {
		var err error
		entries, err = r.backend.ReadDir(ctx, name)
		return err
	})
	return entries, err
}

func (r *RetryDriver) ReadFile(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := r.policy.Execute(ctx, func() error {
		var err error
		data, err = r.backend.ReadFile(ctx, name)
		return err
	})
	return data, err
}

// Watch forwards to the backend when it can watch
func (r *RetryDriver) Watch(ctx context.Context, opts WatchOptions) (<-chan WatchEvent, <-chan error, error) {
	w, ok := r.backend.(Watcher)
	if !ok {
		return nil, nil, ErrWatchUnsupported
	}
	return w.Watch(ctx, opts)
}

// HealthCheck forwards to the backend when it has one
func (r *RetryDriver) HealthCheck(ctx context.Context) error {
	if hc, ok := r.backend.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
