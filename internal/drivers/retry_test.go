package drivers

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy(t *testing.T) {
	t.Run("retries transient failures", func(t *testing.T) {
		// Arrange
		attempts := 0
		failingFunc := func() error {
			attempts++
			if attempts < 3 {
				return errors.New("transient error")
			}
			return nil
		}

		policy := NewRetryPolicy(
			WithMaxAttempts(5),
			WithInitialDelay(10*time.Millisecond),
			WithMaxDelay(100*time.Millisecond),
			WithJitter(true),
		)

		// Act
		err := policy.Execute(context.Background(), failingFunc)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 3, attempts, "Should succeed on third attempt")
	})

	t.Run("does not retry missing files", func(t *testing.T) {
		attempts := 0
		policy := NewRetryPolicy(WithMaxAttempts(5), WithInitialDelay(time.Millisecond))

		err := policy.Execute(context.Background(), func() error {
			attempts++
			return &fs.PathError{Op: "stat", Path: "/gone", Err: fs.ErrNotExist}
		})

		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.Equal(t, 1, attempts)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		slowFunc := func() error {
			time.Sleep(100 * time.Millisecond)
			return errors.New("still failing")
		}

		policy := NewRetryPolicy(WithMaxAttempts(10))

		// Act
		err := policy.Execute(ctx, slowFunc)

		// Assert
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("returns the last error", func(t *testing.T) {
		policy := NewRetryPolicy(WithMaxAttempts(2), WithInitialDelay(time.Millisecond), WithJitter(false))
		err := policy.Execute(context.Background(), func() error {
			return errors.New("keep failing")
		})
		assert.EqualError(t, err, "keep failing")
	})

	t.Run("caps the delay", func(t *testing.T) {
		policy := NewRetryPolicy(
			WithInitialDelay(10*time.Millisecond),
			WithMaxDelay(30*time.Millisecond),
			WithJitter(false),
		)
		assert.Equal(t, 10*time.Millisecond, policy.calculateDelay(0))
		assert.Equal(t, 20*time.Millisecond, policy.calculateDelay(1))
		assert.Equal(t, 30*time.Millisecond, policy.calculateDelay(5))
	})
}

// flakyFS fails the first n calls of every primitive
type flakyFS struct {
	FS
	n     int
	calls int
}

func (f *flakyFS) fail() error {
	f.calls++
	if f.calls <= f.n {
		return errors.New("503 slow down")
	}
	return nil
}

func (f *flakyFS) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.FS.ReadFile(ctx, name)
}

func (f *flakyFS) ReadDir(ctx context.Context, name string) ([]fs.DirEntry, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.FS.ReadDir(ctx, name)
}

func testBucket() FS {
	d, _ := newTestS3Driver()
	return d
}

func TestRetryDriver(t *testing.T) {
	ctx := context.Background()
	policy := NewRetryPolicy(WithMaxAttempts(3), WithInitialDelay(time.Millisecond))

	t.Run("read file after transient errors", func(t *testing.T) {
		backend := &flakyFS{FS: testBucket(), n: 2}
		d := NewRetryDriver(backend, policy)

		data, err := d.ReadFile(ctx, "/docs/a.md")
		require.NoError(t, err)
		assert.NotEmpty(t, data)
		assert.Equal(t, 3, backend.calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		backend := &flakyFS{FS: testBucket(), n: 5}
		d := NewRetryDriver(backend, policy)

		_, err := d.ReadDir(ctx, "/docs")
		assert.Error(t, err)
		assert.Equal(t, 3, backend.calls)
	})

	t.Run("missing keys fail fast", func(t *testing.T) {
		d := NewRetryDriver(testBucket(), policy)
		_, err := d.Stat(ctx, "/nope.txt")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("watch is not supported by s3", func(t *testing.T) {
		d := NewRetryDriver(testBucket(), policy)
		_, _, err := d.Watch(ctx, WatchOptions{Root: "/"})
		assert.ErrorIs(t, err, ErrWatchUnsupported)
	})
}
