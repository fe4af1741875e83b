package drivers

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestLocalDriver_HealthCheck tests health check functionality
func TestLocalDriver_HealthCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("HealthyDriver", func(t *testing.T) {
		tmpDir := t.TempDir()
		driver := NewLocalDriver(tmpDir, zap.NewNop())

		err := driver.HealthCheck(ctx)
		assert.NoError(t, err, "Health check should pass for valid path")
	})

	t.Run("UnhealthyDriver", func(t *testing.T) {
		// Use non-existent path
		driver := NewLocalDriver("/nonexistent/path/12345", zap.NewNop())

		err := driver.HealthCheck(ctx)
		assert.Error(t, err, "Health check should fail for invalid path")
		assert.Contains(t, err.Error(), "health check failed")
	})
}

func TestLocalDriver_FS(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "b.txt"), []byte("bee"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "sub"), 0755))

	driver := NewLocalDriver(tmpDir, zap.NewNop())

	t.Run("Stat resolves relative names against the base path", func(t *testing.T) {
		info, err := driver.Stat(ctx, "b.txt")
		require.NoError(t, err)
		assert.Equal(t, "b.txt", info.Name())
		assert.Equal(t, int64(3), info.Size())
		_, ok := info.(interface{ BirthTime() time.Time })
		assert.True(t, ok, "local stat results expose BirthTime")
	})

	t.Run("Stat accepts absolute names", func(t *testing.T) {
		info, err := driver.Stat(ctx, filepath.Join(tmpDir, "sub"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("Stat reports missing files as not exist", func(t *testing.T) {
		_, err := driver.Stat(ctx, "missing.txt")
		require.Error(t, err)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("ReadDir lists in name order", func(t *testing.T) {
		entries, err := driver.ReadDir(ctx, ".")
		require.NoError(t, err)

		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		assert.Equal(t, []string{"a.txt", "b.txt", "sub"}, names)
	})

	t.Run("ReadFile returns contents", func(t *testing.T) {
		data, err := driver.ReadFile(ctx, "b.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("bee"), data)
	})

	t.Run("ReadFile honours cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := driver.ReadFile(cancelled, "b.txt")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalDriver_Symlinks(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	link := filepath.Join(tmpDir, "dangling")
	if err := os.Symlink(filepath.Join(tmpDir, "nowhere"), link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	driver := NewLocalDriver("", zap.NewNop())

	_, err := driver.Stat(ctx, link)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	info, err := driver.Lstat(ctx, link)
	require.NoError(t, err)
	assert.Equal(t, fs.ModeSymlink, info.Mode()&fs.ModeSymlink)
}
