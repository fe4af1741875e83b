// internal/drivers/local.go
package drivers

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// LocalDriver implements FS and Watcher for the local filesystem
type LocalDriver struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalDriver creates a new local filesystem driver. Relative names are
// resolved against basePath; an empty basePath leaves them as given.
func NewLocalDriver(basePath string, logger *zap.Logger) *LocalDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalDriver{
		basePath: basePath,
		logger:   logger,
	}
}

// Name returns the driver name
func (d *LocalDriver) Name() string {
	return "local"
}

func (d *LocalDriver) path(name string) string {
	if d.basePath == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(d.basePath, name)
}

// Stat follows symlinks. The returned info also reports the birth time where
// the platform records one.
func (d *LocalDriver) Stat(ctx context.Context, name string) (fs.FileInfo, error) {
	fullPath := d.path(name)
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, err
	}
	return &localInfo{FileInfo: info, birth: statBirthTime(fullPath, true)}, nil
}

// Lstat does not follow symlinks
func (d *LocalDriver) Lstat(ctx context.Context, name string) (fs.FileInfo, error) {
	fullPath := d.path(name)
	info, err := os.Lstat(fullPath)
	if err != nil {
		return nil, err
	}
	return &localInfo{FileInfo: info, birth: statBirthTime(fullPath, false)}, nil
}

// ReadDir lists a directory in name order
func (d *LocalDriver) ReadDir(ctx context.Context, name string) ([]fs.DirEntry, error) {
	fullPath := d.path(name)

	d.logger.Debug("LocalDriver.ReadDir", zap.String("fullPath", fullPath))

	return os.ReadDir(fullPath)
}

// ReadFile reads the whole file
func (d *LocalDriver) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(d.path(name))
}

// HealthCheck verifies the driver is working
func (d *LocalDriver) HealthCheck(ctx context.Context) error {
	if _, err := os.Stat(d.path(".")); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// localInfo decorates os.FileInfo with the file's birth time
type localInfo struct {
	fs.FileInfo
	birth time.Time
}

func (i *localInfo) BirthTime() time.Time {
	return i.birth
}
