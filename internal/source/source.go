// internal/source/source.go

// Package source implements the filesystem source: a one-shot read of a
// file, directory or glob, followed by an optional watch that reports
// changes as records.
package source

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FairForge/fsource/internal/config"
	"github.com/FairForge/fsource/internal/drivers"
	"github.com/FairForge/fsource/internal/engine"
	"github.com/FairForge/fsource/internal/filter"
	"github.com/FairForge/fsource/internal/metrics"
)

// Name identifies the source to the host
const Name = "Filesystem Source"

// Option configures a Source
type Option func(*Source)

// WithWatcher sets the notifier used by Watch. By default the local
// filesystem is watched when no backend is configured, or the backend itself
// when it can watch.
func WithWatcher(w drivers.Watcher) Option {
	return func(s *Source) {
		s.notifier = w
	}
}

// WithMetrics records read and watch metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Source) {
		s.metrics = m
	}
}

// WithDebounce overrides how long notifications are coalesced per path
func WithDebounce(d time.Duration) Option {
	return func(s *Source) {
		s.debounce = d
	}
}

// Source is the plugin surface handed to the host pipeline. Configuration is
// resolved at construction, the path on first use.
type Source struct {
	resolved *config.Resolved
	logger   *zap.Logger
	metrics  *metrics.Metrics
	notifier drivers.Watcher
	debounce time.Duration
	reader   *Reader

	mu       sync.Mutex
	path     PathInfo
	rootURI  string
	watcher  *Watcher
	watchSeq iter.Seq2[*engine.File, error]
}

// New validates opts and creates a source
func New(opts config.Options, logger *zap.Logger, options ...Option) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	resolved, err := config.Resolve(opts, logger)
	if err != nil {
		return nil, err
	}

	s := &Source{
		resolved: resolved,
		logger:   logger,
	}
	switch w := opts.Backend.(type) {
	case nil:
		s.notifier = drivers.NewLocalDriver("", logger)
	case drivers.Watcher:
		s.notifier = w
	}
	for _, opt := range options {
		opt(s)
	}
	s.reader = NewReader(resolved, logger, s.metrics)

	logger.Debug("source configured",
		zap.String("path", resolved.Path),
		zap.Int("depth", resolved.Depth),
		zap.String("filter", resolved.Criteria.String()),
		zap.String("path_style", resolved.Style.String()))

	return s, nil
}

// NewFromConfig parses untyped configuration and creates a source
func NewFromConfig(raw interface{}, logger *zap.Logger, options ...Option) (*Source, error) {
	opts, err := config.Parse(raw)
	if err != nil {
		return nil, err
	}
	return New(opts, logger, options...)
}

// Name returns the source name
func (s *Source) Name() string {
	return Name
}

// Filter returns the compiled predicate so the host can pre-filter records
func (s *Source) Filter() filter.Predicate {
	return s.resolved.Filter
}

// Initialize resolves the source path. It only does work once; a failed
// resolution is retried on the next call.
func (s *Source) Initialize(ctx context.Context, run engine.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.pathLocked(ctx, run)
	return err
}

func (s *Source) pathLocked(ctx context.Context, run engine.Run) (PathInfo, error) {
	if s.path != nil {
		return s.path, nil
	}

	path, err := ResolvePath(ctx, s.resolved, run.Cwd)
	if err != nil {
		s.logger.Debug("resolve path failed",
			zap.String("path", s.resolved.Path),
			zap.Error(err))
		s.metrics.IncrementError(Name, errorKind(err))
		return nil, err
	}

	s.path = path
	s.rootURI = engine.FileURL(path.Abs(), s.resolved.Style)
	s.logger.Info("source initialized",
		zap.String("path", path.Abs()),
		zap.String("root", path.Root()))
	return path, nil
}

// Read returns every matching file with its contents
func (s *Source) Read(ctx context.Context, run engine.Run) (iter.Seq2[*engine.File, error], error) {
	s.mu.Lock()
	path, err := s.pathLocked(ctx, run)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	ctx = engine.WithSessionID(ctx, sessionID)
	s.logger.Debug("read started",
		zap.String("session_id", sessionID),
		zap.String("root", path.Root()),
		zap.Int("concurrency", run.Limit()))

	return s.reader.Read(ctx, path, run), nil
}

// Watch starts watching and returns the change sequence. Until Dispose,
// repeat calls return the same sequence.
func (s *Source) Watch(ctx context.Context, run engine.Run) (iter.Seq2[*engine.File, error], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return s.watchSeq, nil
	}

	path, err := s.pathLocked(ctx, run)
	if err != nil {
		return nil, err
	}
	if s.notifier == nil {
		return nil, drivers.ErrWatchUnsupported
	}

	sessionID := uuid.New().String()
	ctx = engine.WithSessionID(ctx, sessionID)

	w := NewWatcher(s.resolved, path, s.notifier, s.logger.With(zap.String("session_id", sessionID)), s.metrics)
	w.debounce = s.debounce
	seq, err := w.Start(ctx, run)
	if err != nil {
		s.metrics.IncrementError(Name, metrics.KindWatch)
		return nil, err
	}

	s.watcher = w
	s.watchSeq = seq
	return seq, nil
}

// Dispose stops an active watch. It is safe to call at any time.
func (s *Source) Dispose(ctx context.Context) error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.watchSeq = nil
	s.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.Dispose(ctx)
}
