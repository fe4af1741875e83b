// internal/source/watcher.go
package source

import (
	"context"
	"iter"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FairForge/fsource/internal/config"
	"github.com/FairForge/fsource/internal/drivers"
	"github.com/FairForge/fsource/internal/engine"
	"github.com/FairForge/fsource/internal/metrics"
)

// WatchState is the lifecycle state of a Watcher
type WatchState int

const (
	WatchIdle WatchState = iota
	WatchWatching
	WatchDisposed
)

func (s WatchState) String() string {
	switch s {
	case WatchIdle:
		return "idle"
	case WatchWatching:
		return "watching"
	case WatchDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// result is one element of the output sequence
type result struct {
	file *engine.File
	err  error
}

// Watcher turns notifier events for a resolved path into change records. It
// runs once: Idle -> Watching -> Disposed.
type Watcher struct {
	resolved *config.Resolved
	path     PathInfo
	notifier drivers.Watcher
	builder  engine.FileBuilder
	logger   *zap.Logger
	metrics  *metrics.Metrics
	name     string
	debounce time.Duration

	// mu guards state and out. Emitters hold it for reading while sending so
	// Dispose can close out under the write lock.
	mu      sync.RWMutex
	state   WatchState
	out     chan result
	cancel  context.CancelFunc
	done    chan struct{} // closed first thing in Dispose
	stopped chan struct{} // closed when the notifier channels are drained

	disposeOnce sync.Once
	workers     sync.WaitGroup
}

// NewWatcher creates an idle watcher for path
func NewWatcher(resolved *config.Resolved, path PathInfo, notifier drivers.Watcher, logger *zap.Logger, m *metrics.Metrics) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		resolved: resolved,
		path:     path,
		notifier: notifier,
		builder:  engine.FileBuilder{Style: resolved.Style},
		logger:   logger,
		metrics:  m,
		name:     Name,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// State returns the current lifecycle state
func (w *Watcher) State() WatchState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Start subscribes to the notifier and returns the change sequence. Errors
// for single events are yielded as (nil, err) and watching continues. The
// sequence ends when Dispose is called; cancelling ctx does not stop it.
func (w *Watcher) Start(ctx context.Context, run engine.Run) (iter.Seq2[*engine.File, error], error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != WatchIdle {
		return nil, engine.ErrWatcherClosed
	}

	root := w.path.Root()
	opts := drivers.WatchOptions{
		Root:     root,
		Depth:    w.resolved.Depth,
		Debounce: w.debounce,
	}
	if glob, ok := w.resolved.Criteria.SingleGlob(); ok {
		opts.Glob = glob
	}
	if _, ok := w.path.(*FilePath); ok {
		opts.Depth = 0
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	events, errs, err := w.notifier.Watch(watchCtx, opts)
	if err != nil {
		cancel()
		return nil, &engine.IOError{Op: "watch", Path: root, Err: err}
	}

	w.state = WatchWatching
	w.out = make(chan result)
	w.cancel = cancel

	shards := make([]chan drivers.WatchEvent, run.Limit())
	for i := range shards {
		shards[i] = make(chan drivers.WatchEvent, 16)
		w.workers.Add(1)
		go w.work(watchCtx, shards[i])
	}
	go w.dispatch(events, errs, shards)

	sessionID, _ := engine.SessionIDFromContext(ctx)
	w.logger.Info("watch started",
		zap.String("session_id", sessionID),
		zap.String("root", root),
		zap.Int("depth", opts.Depth),
		zap.String("glob", opts.Glob),
		zap.Int("workers", len(shards)))

	out := w.out
	return func(yield func(*engine.File, error) bool) {
		for r := range out {
			if !yield(r.file, r.err) {
				return
			}
		}
	}, nil
}

// dispatch routes events to workers by path so that the events of one path
// are handled in order
func (w *Watcher) dispatch(events <-chan drivers.WatchEvent, errs <-chan error, shards []chan drivers.WatchEvent) {
	defer close(w.stopped)

	file, single := w.path.(*FilePath)
	root := w.path.Root()

	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if single && ev.Path != file.Filename {
				continue
			}
			// notifiers outside this module may not honor the depth option
			if !engine.WithinDepth(ev.Path, w.resolved.Depth) {
				continue
			}
			shard := shards[xxhash.Sum64String(ev.Path)%uint64(len(shards))]
			select {
			case shard <- ev:
			case <-w.done:
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.fail(&engine.IOError{Op: "watch", Path: root, Err: err}, metrics.KindWatch)
		}
	}

	for _, shard := range shards {
		close(shard)
	}
	w.workers.Wait()
}

func (w *Watcher) work(ctx context.Context, events <-chan drivers.WatchEvent) {
	defer w.workers.Done()
	for ev := range events {
		w.handle(ctx, ev)
	}
}

func (w *Watcher) handle(ctx context.Context, ev drivers.WatchEvent) {
	change := changeKind(ev.Type)
	abs := filepath.Join(w.path.Root(), ev.Path)

	w.logger.Debug("change detected",
		zap.String("change", string(change)),
		zap.String("path", ev.Path))

	file := w.builder.Build(ev.Path, abs, ev.Info, change)

	ok, err := w.resolved.Filter(file)
	if err != nil {
		w.fail(&engine.FilterError{Path: ev.Path, Err: err}, metrics.KindFilter)
		return
	}
	if !ok {
		return
	}

	if change != engine.ChangeDeleted {
		start := time.Now()
		data, err := w.resolved.FS.ReadFile(ctx, abs)
		if err != nil {
			w.fail(&engine.IOError{Op: "read", Path: abs, Err: err}, metrics.KindIO)
			return
		}
		file.Contents = data
		w.metrics.RecordRead(w.name, "watch", len(data), time.Since(start))
	}

	if w.emit(result{file: file}) {
		w.metrics.IncrementWatchEvent(w.name, string(change))
	}
}

func (w *Watcher) fail(err error, kind string) {
	w.logger.Debug("watch error", zap.Error(err))
	if w.emit(result{err: err}) {
		w.metrics.IncrementError(w.name, kind)
	}
}

// emit sends r unless the watcher has been disposed
func (w *Watcher) emit(r result) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.state != WatchWatching {
		return false
	}
	select {
	case w.out <- r:
		return true
	case <-w.done:
		return false
	}
}

// Dispose stops the watch. It may be called before Start, more than once,
// and while events are being processed. The output channel is closed and the
// notifier is cancelled concurrently; Dispose returns once its channels have
// closed or ctx ends.
func (w *Watcher) Dispose(ctx context.Context) error {
	var err error
	w.disposeOnce.Do(func() {
		close(w.done)

		w.mu.Lock()
		prev := w.state
		w.state = WatchDisposed
		cancel := w.cancel
		w.mu.Unlock()

		if prev != WatchWatching {
			return
		}

		var g errgroup.Group
		g.Go(func() error {
			w.mu.Lock()
			defer w.mu.Unlock()
			close(w.out)
			return nil
		})
		g.Go(func() error {
			cancel()
			select {
			case <-w.stopped:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		err = g.Wait()

		w.logger.Info("watch disposed", zap.String("root", w.path.Root()))
	})
	return err
}

func changeKind(t drivers.WatchEventType) engine.ChangeKind {
	switch t {
	case drivers.WatchEventCreate:
		return engine.ChangeCreated
	case drivers.WatchEventDelete:
		return engine.ChangeDeleted
	default:
		return engine.ChangeModified
	}
}
