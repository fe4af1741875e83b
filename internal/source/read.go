// internal/source/read.go
package source

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FairForge/fsource/internal/config"
	"github.com/FairForge/fsource/internal/engine"
	"github.com/FairForge/fsource/internal/metrics"
)

// Reader enumerates and reads the files of a resolved path
type Reader struct {
	resolved *config.Resolved
	builder  engine.FileBuilder
	logger   *zap.Logger
	metrics  *metrics.Metrics
	name     string
}

// NewReader creates a reader over resolved
func NewReader(resolved *config.Resolved, logger *zap.Logger, m *metrics.Metrics) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		resolved: resolved,
		builder:  engine.FileBuilder{Style: resolved.Style},
		logger:   logger,
		metrics:  m,
		name:     Name,
	}
}

// Read returns the records under path. A file path yields at most one record.
// A directory is crawled within the configured depth while up to
// run.Limit() reads are in flight; records arrive in completion order. The
// first error ends the sequence and is yielded as its last element.
func (r *Reader) Read(ctx context.Context, path PathInfo, run engine.Run) iter.Seq2[*engine.File, error] {
	switch p := path.(type) {
	case *FilePath:
		return r.readFile(ctx, p)
	case *DirPath:
		return r.readDir(ctx, p, run)
	default:
		return func(func(*engine.File, error) bool) {}
	}
}

func (r *Reader) readFile(ctx context.Context, p *FilePath) iter.Seq2[*engine.File, error] {
	return func(yield func(*engine.File, error) bool) {
		if !p.Stat.Mode().IsRegular() {
			r.logger.Debug("skipping special file",
				zap.String("path", p.AbsolutePath),
				zap.String("mode", p.Stat.Mode().String()))
			return
		}
		file := r.builder.Build(p.Filename, p.AbsolutePath, p.Stat, "")

		ok, err := r.resolved.Filter(file)
		if err != nil {
			yield(nil, r.failed(ctx, &engine.FilterError{Path: file.Path, Err: err}))
			return
		}
		if !ok {
			return
		}

		if err := r.load(ctx, file, p.AbsolutePath); err != nil {
			yield(nil, r.failed(ctx, err))
			return
		}
		yield(file, nil)
	}
}

func (r *Reader) readDir(ctx context.Context, p *DirPath, run engine.Run) iter.Seq2[*engine.File, error] {
	return func(yield func(*engine.File, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		out := make(chan *engine.File)
		done := make(chan error, 1)

		go func() {
			walkCtx, stopWalk := context.WithCancel(ctx)
			defer stopWalk()

			g, gctx := errgroup.WithContext(walkCtx)
			g.SetLimit(run.Limit())

			crawlErr := r.crawl(gctx, g, out, p.AbsolutePath, "", 0)
			if crawlErr != nil {
				stopWalk()
			}
			readErr := g.Wait()

			err := crawlErr
			if readErr != nil && (crawlErr == nil || errors.Is(crawlErr, context.Canceled)) {
				err = readErr
			}
			done <- err
			close(out)
		}()

		for file := range out {
			if !yield(file, nil) {
				return
			}
		}
		if err := <-done; err != nil {
			yield(nil, r.failed(ctx, err))
		}
	}
}

// crawl walks dir, filtering files as they are found and handing matches to
// g for reading. Directories recurse while level+1 is within depth.
func (r *Reader) crawl(ctx context.Context, g *errgroup.Group, out chan<- *engine.File, dir, relDir string, level int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fsys := r.resolved.FS
	entries, err := fsys.ReadDir(ctx, dir)
	if err != nil {
		return &engine.IOError{Op: "readdir", Path: dir, Err: err}
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel := entry.Name()
		if relDir != "" {
			rel = filepath.Join(relDir, entry.Name())
		}
		abs := filepath.Join(dir, entry.Name())

		info, err := fsys.Stat(ctx, abs)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && r.dangling(ctx, abs) {
				r.logger.Debug("skipping dangling symlink", zap.String("path", abs))
				continue
			}
			return &engine.IOError{Op: "stat", Path: abs, Err: err}
		}

		if info.IsDir() {
			if r.resolved.Depth == engine.DepthUnbounded || level+1 <= r.resolved.Depth {
				if err := r.crawl(ctx, g, out, abs, rel, level+1); err != nil {
					return err
				}
			}
			continue
		}
		if !info.Mode().IsRegular() {
			r.logger.Debug("skipping special file",
				zap.String("path", abs),
				zap.String("mode", info.Mode().String()))
			continue
		}

		file := r.builder.Build(rel, abs, info, "")
		ok, err := r.resolved.Filter(file)
		if err != nil {
			return &engine.FilterError{Path: rel, Err: err}
		}
		if !ok {
			continue
		}

		g.Go(func() error {
			if err := r.load(ctx, file, abs); err != nil {
				return err
			}
			select {
			case out <- file:
			case <-ctx.Done():
			}
			return nil
		})
	}
	return nil
}

// dangling reports whether abs is a symlink whose target is gone
func (r *Reader) dangling(ctx context.Context, abs string) bool {
	info, err := r.resolved.FS.Lstat(ctx, abs)
	return err == nil && info.Mode()&fs.ModeSymlink != 0
}

func (r *Reader) load(ctx context.Context, file *engine.File, abs string) error {
	start := time.Now()
	data, err := r.resolved.FS.ReadFile(ctx, abs)
	if err != nil {
		return &engine.IOError{Op: "read", Path: abs, Err: err}
	}
	file.Contents = data
	r.metrics.RecordRead(r.name, "read", len(data), time.Since(start))
	return nil
}

func (r *Reader) failed(ctx context.Context, err error) error {
	sessionID, _ := engine.SessionIDFromContext(ctx)
	r.logger.Debug("read failed",
		zap.String("session_id", sessionID),
		zap.Error(err))
	r.metrics.IncrementError(r.name, errorKind(err))
	return err
}

// errorKind maps an error onto a metrics label
func errorKind(err error) string {
	var (
		verr *engine.ValidationError
		nerr *engine.NotFoundError
		ferr *engine.FilterError
	)
	switch {
	case errors.As(err, &verr):
		return metrics.KindValidation
	case errors.As(err, &nerr):
		return metrics.KindNotFound
	case errors.As(err, &ferr):
		return metrics.KindFilter
	default:
		return metrics.KindIO
	}
}
