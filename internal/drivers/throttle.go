// internal/drivers/throttle.go
package drivers

import (
	"context"
	"io/fs"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ThrottledDriver caps the read bandwidth of another FS. Metadata calls pass
// straight through.
type ThrottledDriver struct {
	backend FS
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewThrottledDriver creates a driver with bandwidth throttling
func NewThrottledDriver(backend FS, bytesPerSecond int, logger *zap.Logger) *ThrottledDriver {
	// Create limiter with bytes per second rate and burst size
	limiter := rate.NewLimiter(rate.Limit(bytesPerSecond), bytesPerSecond)
	return newThrottledDriver(backend, limiter, logger)
}

func newThrottledDriver(backend FS, limiter *rate.Limiter, logger *zap.Logger) *ThrottledDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThrottledDriver{
		backend: backend,
		limiter: limiter,
		logger:  logger,
	}
}

// ReadFile reads through the backend and then waits until the limiter has
// granted every byte returned.
func (t *ThrottledDriver) ReadFile(ctx context.Context, name string) ([]byte, error) {
	data, err := t.backend.ReadFile(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := t.wait(ctx, len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

// wait takes n tokens in burst-sized steps, WaitN rejects anything larger
func (t *ThrottledDriver) wait(ctx context.Context, n int) error {
	burst := t.limiter.Burst()
	if burst <= 0 {
		return nil
	}
	for n > 0 {
		step := n
		if step > burst {
			step = burst
		}
		if err := t.limiter.WaitN(ctx, step); err != nil {
			t.logger.Debug("throttled read aborted", zap.Error(err))
			return err
		}
		n -= step
	}
	return nil
}

// Delegate other required methods
func (t *ThrottledDriver) Stat(ctx context.Context, name string) (fs.FileInfo, error) {
	return t.backend.Stat(ctx, name)
}

func (t *ThrottledDriver) Lstat(ctx context.Context, name string) (fs.FileInfo, error) {
	return t.backend.Lstat(ctx, name)
}

func (t *ThrottledDriver) ReadDir(ctx context.Context, name string) ([]fs.DirEntry, error) {
	return t.backend.ReadDir(ctx, name)
}

// Watch forwards to the backend when it can watch
func (t *ThrottledDriver) Watch(ctx context.Context, opts WatchOptions) (<-chan WatchEvent, <-chan error, error) {
	w, ok := t.backend.(Watcher)
	if !ok {
		return nil, nil, ErrWatchUnsupported
	}
	return w.Watch(ctx, opts)
}
