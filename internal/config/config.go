// internal/config/config.go
package config

import (
	"strings"

	"go.uber.org/zap"

	"github.com/FairForge/fsource/internal/drivers"
	"github.com/FairForge/fsource/internal/engine"
	"github.com/FairForge/fsource/internal/filter"
)

// Options is the typed source configuration
type Options struct {
	// Path is a file, a directory or a glob, relative to the run's working
	// directory unless absolute.
	Path string

	// Depth bounds how many directory levels are crawled and watched. nil is
	// unbounded, 0 is the top level only.
	Depth *int

	// Filter selects files. When unset and Path contains glob syntax the glob
	// part of Path becomes the filter.
	Filter filter.Criteria

	// FS overrides individual filesystem primitives
	FS drivers.Bindings

	// Backend serves the primitives FS does not override. Defaults to the
	// local filesystem.
	Backend drivers.FS
}

// Depth returns a pointer for Options.Depth
func Depth(n int) *int {
	return &n
}

// Resolved is the validated, normalized form of Options
type Resolved struct {
	Path     string
	Depth    int
	Criteria filter.Criteria
	Filter   filter.Predicate
	FS       drivers.FS
	Style    engine.PathStyle
}

// Resolve validates opts, splits a glob path into directory and filter,
// normalizes depth and binds the filesystem.
func Resolve(opts Options, logger *zap.Logger) (*Resolved, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	path := opts.Path
	if path == "" {
		return nil, engine.ErrValidation("path", path, "It cannot be empty.")
	}
	if strings.TrimSpace(path) == "" {
		return nil, engine.ErrValidation("path", path, "It cannot be all whitespace.")
	}
	path = strings.TrimSpace(path)

	depth := engine.DepthUnbounded
	if opts.Depth != nil {
		if *opts.Depth < 0 {
			return nil, engine.ErrValidation("deep", *opts.Depth, "Expected a non-negative integer.")
		}
		depth = *opts.Depth
	}

	style := engine.HostPathStyle()

	// An explicit filter keeps the path literal, glob syntax included.
	criteria := opts.Filter
	if criteria.IsNone() {
		if dir, glob, ok := filter.Split(path, style); ok {
			logger.Debug("split glob path",
				zap.String("path", path),
				zap.String("dir", dir),
				zap.String("glob", glob))
			path = dir
			criteria = filter.Glob(glob)
		}
	}

	pred, err := filter.Compile(criteria, style)
	if err != nil {
		return nil, err
	}

	backend := opts.Backend
	if backend == nil {
		backend = drivers.NewLocalDriver("", logger)
	}

	return &Resolved{
		Path:     path,
		Depth:    depth,
		Criteria: criteria,
		Filter:   pred,
		FS:       opts.FS.Over(backend),
		Style:    style,
	}, nil
}
