// internal/drivers/watch.go
package drivers

import (
	"context"
	"errors"
	"io/fs"
	"time"
)

// WatchEventType represents the type of file system event
type WatchEventType int

const (
	WatchEventCreate WatchEventType = iota
	WatchEventModify
	WatchEventDelete
)

func (t WatchEventType) String() string {
	switch t {
	case WatchEventCreate:
		return "add"
	case WatchEventModify:
		return "change"
	case WatchEventDelete:
		return "unlink"
	default:
		return "unknown"
	}
}

// WatchEvent represents a file system change event
type WatchEvent struct {
	Type WatchEventType
	Path string      // Relative path from watched root
	Info fs.FileInfo // nil for deletions
}

// DefaultDebounce is how long raw notifications for one path are coalesced
const DefaultDebounce = 50 * time.Millisecond

// WatchOptions scopes a watch
type WatchOptions struct {
	// Root is the directory to watch. Empty means the driver base path.
	Root string

	// Depth limits how many directory levels below Root are watched. -1 is unbounded.
	Depth int

	// Glob, when set, restricts events to relative paths matching the pattern.
	Glob string

	// Debounce overrides DefaultDebounce
	Debounce time.Duration
}

// ErrWatchUnsupported is returned by wrappers whose backend cannot watch
var ErrWatchUnsupported = errors.New("backend does not support watching")

// Watcher interface for drivers that support file watching. Both channels are
// closed once ctx is cancelled and the underlying handle is released.
type Watcher interface {
	Watch(ctx context.Context, opts WatchOptions) (<-chan WatchEvent, <-chan error, error)
}
