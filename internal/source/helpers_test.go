package source

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/FairForge/fsource/internal/drivers"
	"github.com/FairForge/fsource/internal/engine"
)

// createDir writes files (slash separated relative paths) under a temp dir
func createDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, contents := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	}
	return dir
}

func collect(seq iter.Seq2[*engine.File, error]) ([]*engine.File, error) {
	var files []*engine.File
	for file, err := range seq {
		if err != nil {
			return files, err
		}
		files = append(files, file)
	}
	return files, nil
}

// paths returns slash separated relative paths, sorted
func paths(files []*engine.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, filepath.ToSlash(f.Path))
	}
	sort.Strings(out)
	return out
}

func totalSize(files []*engine.File) int {
	n := 0
	for _, f := range files {
		n += f.Size()
	}
	return n
}

// pump drains a watch sequence into a channel so tests can use timeouts
func pump(seq iter.Seq2[*engine.File, error]) <-chan result {
	ch := make(chan result, 64)
	go func() {
		defer close(ch)
		for file, err := range seq {
			ch <- result{file: file, err: err}
		}
	}()
	return ch
}

func next(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r, ok := <-ch:
		require.True(t, ok, "sequence ended")
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for watch record")
	}
	return result{}
}

func quiet(t *testing.T, ch <-chan result, wait time.Duration) {
	t.Helper()
	select {
	case r, ok := <-ch:
		if ok {
			t.Fatalf("unexpected record: %+v", r)
		}
	case <-time.After(wait):
	}
}

// fakeNotifier hands out channels the test writes to
type fakeNotifier struct {
	mu     sync.Mutex
	opts   drivers.WatchOptions
	events chan drivers.WatchEvent
	errs   chan error
	closed chan struct{}
	err    error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		events: make(chan drivers.WatchEvent),
		errs:   make(chan error),
		closed: make(chan struct{}),
	}
}

func (n *fakeNotifier) Watch(ctx context.Context, opts drivers.WatchOptions) (<-chan drivers.WatchEvent, <-chan error, error) {
	if n.err != nil {
		return nil, nil, n.err
	}
	n.mu.Lock()
	n.opts = opts
	n.mu.Unlock()

	events := make(chan drivers.WatchEvent)
	errs := make(chan error)
	go func() {
		defer close(n.closed)
		defer close(errs)
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-n.events:
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			case err := <-n.errs:
				select {
				case errs <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, errs, nil
}

func (n *fakeNotifier) options() drivers.WatchOptions {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.opts
}

func (n *fakeNotifier) send(t *testing.T, ev drivers.WatchEvent) {
	t.Helper()
	select {
	case n.events <- ev:
	case <-time.After(time.Second):
		t.Fatal("notifier not consuming events")
	}
}

func (n *fakeNotifier) fail(t *testing.T, err error) {
	t.Helper()
	select {
	case n.errs <- err:
	case <-time.After(time.Second):
		t.Fatal("notifier not consuming errors")
	}
}

// fakeInfo is a minimal fs.FileInfo for custom filesystems
type fakeInfo struct {
	name string
	dir  bool
	size int64
}

func (i fakeInfo) Name() string       { return i.name }
func (i fakeInfo) Size() int64        { return i.size }
func (i fakeInfo) ModTime() time.Time { return time.Time{} }
func (i fakeInfo) IsDir() bool        { return i.dir }
func (i fakeInfo) Sys() interface{}   { return nil }

func (i fakeInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0755
	}
	return 0644
}
