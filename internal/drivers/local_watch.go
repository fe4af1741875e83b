// internal/drivers/local_watch.go
package drivers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// fileState is the part of a stat result used to tell real changes from
// duplicate notifications
type fileState struct {
	modTime time.Time
	size    int64
}

// localWatch owns one fsnotify handle. All fields are confined to the run
// goroutine after Watch returns.
type localWatch struct {
	driver   *LocalDriver
	fw       *fsnotify.Watcher
	ctx      context.Context
	root     string
	depth    int
	glob     string
	debounce time.Duration

	known   map[string]fileState // tracked files by relative path
	dirs    map[string]bool      // watched directories by relative path
	pending map[string]time.Time // last raw notification per path

	events chan WatchEvent
	errs   chan error
}

// Watch starts watching opts.Root. fsnotify is not recursive, so every
// directory within opts.Depth is registered individually and directories that
// appear later are added as they are seen. Files present when Watch is called
// are recorded but not reported.
func (d *LocalDriver) Watch(ctx context.Context, opts WatchOptions) (<-chan WatchEvent, <-chan error, error) {
	root := d.path(opts.Root)
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve watch root: %w", err)
	}

	if opts.Glob != "" && !doublestar.ValidatePattern(opts.Glob) {
		return nil, nil, fmt.Errorf("invalid watch glob: %q", opts.Glob)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &localWatch{
		driver:   d,
		fw:       fw,
		ctx:      ctx,
		root:     root,
		depth:    opts.Depth,
		glob:     opts.Glob,
		debounce: debounce,
		known:    make(map[string]fileState),
		dirs:     make(map[string]bool),
		pending:  make(map[string]time.Time),
		events:   make(chan WatchEvent),
		errs:     make(chan error),
	}

	if err := w.addTree(".", 0, false); err != nil {
		_ = fw.Close()
		return nil, nil, err
	}

	d.logger.Debug("LocalDriver.Watch started",
		zap.String("root", root),
		zap.Int("depth", opts.Depth),
		zap.String("glob", opts.Glob),
		zap.Int("directories", len(w.dirs)))

	go w.run()

	return w.events, w.errs, nil
}

func (w *localWatch) run() {
	defer close(w.errs)
	defer close(w.events)
	defer func() { _ = w.fw.Close() }()

	tick := w.debounce / 2
	if tick < 5*time.Millisecond {
		tick = 5 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.queue(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.sendErr(err)
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

// queue records a raw notification. Classification happens in flush, once the
// path has been quiet for the debounce window.
func (w *localWatch) queue(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	w.pending[rel] = time.Now()
}

func (w *localWatch) flush(now time.Time) {
	var ready []string
	for rel, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, rel)
		}
	}
	sort.Strings(ready)

	for _, rel := range ready {
		delete(w.pending, rel)
		w.reconcile(rel)
	}
}

// reconcile compares the current state of rel with what is known about it and
// emits at most one event.
func (w *localWatch) reconcile(rel string) {
	abs := filepath.Join(w.root, rel)
	info, err := w.driver.Stat(w.ctx, abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			w.removed(rel)
			return
		}
		w.sendErr(err)
		return
	}

	if info.IsDir() {
		if _, wasFile := w.known[rel]; wasFile {
			w.removed(rel)
		}
		if w.dirs[rel] {
			return
		}
		level := segments(rel)
		if !w.watchDir(level) {
			return
		}
		if err := w.addTree(rel, level, true); err != nil {
			w.sendErr(err)
		}
		return
	}

	if !info.Mode().IsRegular() || !w.track(rel) {
		return
	}

	state := fileState{modTime: info.ModTime(), size: info.Size()}
	prev, known := w.known[rel]
	w.known[rel] = state

	switch {
	case !known:
		w.emit(WatchEvent{Type: WatchEventCreate, Path: rel, Info: info})
	case prev != state:
		w.emit(WatchEvent{Type: WatchEventModify, Path: rel, Info: info})
	}
}

// removed reports rel and, when rel was a watched directory, every known file
// beneath it as deleted.
func (w *localWatch) removed(rel string) {
	if _, ok := w.known[rel]; ok {
		delete(w.known, rel)
		w.emit(WatchEvent{Type: WatchEventDelete, Path: rel})
	}

	if !w.dirs[rel] {
		return
	}

	prefix := rel + string(filepath.Separator)
	for dir := range w.dirs {
		if dir == rel || strings.HasPrefix(dir, prefix) {
			// the kernel drops watches on deleted directories itself
			_ = w.fw.Remove(filepath.Join(w.root, dir))
			delete(w.dirs, dir)
		}
	}

	var gone []string
	for file := range w.known {
		if strings.HasPrefix(file, prefix) {
			gone = append(gone, file)
		}
	}
	sort.Strings(gone)
	for _, file := range gone {
		delete(w.known, file)
		w.emit(WatchEvent{Type: WatchEventDelete, Path: file})
	}
}

// addTree registers rel (a directory at the given level) and its
// subdirectories within depth. With report set, files found along the way are
// emitted as created.
func (w *localWatch) addTree(rel string, level int, report bool) error {
	abs := filepath.Join(w.root, rel)
	if err := w.fw.Add(abs); err != nil {
		return fmt.Errorf("watch %s: %w", abs, err)
	}
	w.dirs[rel] = true

	entries, err := os.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("list %s: %w", abs, err)
	}

	for _, entry := range entries {
		childRel := entry.Name()
		if rel != "." {
			childRel = filepath.Join(rel, entry.Name())
		}

		if entry.IsDir() {
			if w.watchDir(level + 1) {
				if err := w.addTree(childRel, level+1, report); err != nil {
					return err
				}
			}
			continue
		}

		if !w.track(childRel) {
			continue
		}
		info, err := w.driver.Stat(w.ctx, filepath.Join(w.root, childRel))
		if err != nil || !info.Mode().IsRegular() {
			// dangling links and symlinked directories are not followed
			continue
		}
		if _, known := w.known[childRel]; known {
			continue
		}
		w.known[childRel] = fileState{modTime: info.ModTime(), size: info.Size()}
		if report {
			w.emit(WatchEvent{Type: WatchEventCreate, Path: childRel, Info: info})
		}
	}
	return nil
}

func (w *localWatch) watchDir(level int) bool {
	return w.depth < 0 || level <= w.depth
}

// track reports whether a file at rel is within depth and matches the glob
func (w *localWatch) track(rel string) bool {
	if w.depth >= 0 && segments(rel)-1 > w.depth {
		return false
	}
	if w.glob == "" {
		return true
	}
	ok, err := doublestar.Match(w.glob, filepath.ToSlash(rel))
	return err == nil && ok
}

func (w *localWatch) emit(ev WatchEvent) {
	w.driver.logger.Debug("LocalDriver.Watch event",
		zap.String("type", ev.Type.String()),
		zap.String("path", ev.Path))

	select {
	case w.events <- ev:
	case <-w.ctx.Done():
	}
}

func (w *localWatch) sendErr(err error) {
	select {
	case w.errs <- err:
	case <-w.ctx.Done():
	}
}

// segments counts the path elements of a relative path
func segments(rel string) int {
	if rel == "." || rel == "" {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}
