// internal/source/process.go
package source

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/fsource/internal/engine"
	"github.com/FairForge/fsource/internal/metrics"
)

// ProcessFile fills in the contents of a changed record that lies under this
// source's root and arrived without them, for example from another plugin
// asking for a re-read. Every other record is returned unchanged.
func (s *Source) ProcessFile(ctx context.Context, run engine.Run, file *engine.File) (*engine.File, error) {
	if file == nil || len(file.Contents) > 0 || file.Change == "" || file.Change == engine.ChangeDeleted {
		return file, nil
	}

	s.mu.Lock()
	_, err := s.pathLocked(ctx, run)
	root := s.rootURI
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if !underRoot(file.Source, root) {
		return file, nil
	}

	abs, err := engine.FilePath(file.Source, s.resolved.Style)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := s.resolved.FS.ReadFile(ctx, abs)
	if err != nil {
		s.metrics.IncrementError(Name, metrics.KindIO)
		return nil, &engine.IOError{Op: "read", Path: abs, Err: err}
	}
	file.Contents = data
	s.metrics.RecordRead(Name, "process", len(data), time.Since(start))

	s.logger.Debug("re-read changed file",
		zap.String("path", file.Path),
		zap.String("change", string(file.Change)),
		zap.Int("size", len(data)))
	return file, nil
}

// underRoot matches root itself and URIs below it, never siblings that only
// share a name prefix
func underRoot(uri, root string) bool {
	if uri == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(uri, prefix)
}
