// internal/source/path.go
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/FairForge/fsource/internal/config"
	"github.com/FairForge/fsource/internal/engine"
)

// PathInfo is the resolved root of a source: either a *DirPath or a *FilePath
type PathInfo interface {
	// Root is the directory crawled and watched
	Root() string
	// Abs is the absolute configured path
	Abs() string
	// Info is the stat result taken at resolution
	Info() fs.FileInfo

	pathInfo()
}

// DirPath is a source rooted at a directory
type DirPath struct {
	AbsolutePath string
	Stat         fs.FileInfo
}

func (p *DirPath) Root() string      { return p.AbsolutePath }
func (p *DirPath) Abs() string       { return p.AbsolutePath }
func (p *DirPath) Info() fs.FileInfo { return p.Stat }
func (p *DirPath) pathInfo()         {}

// FilePath is a source naming a single file
type FilePath struct {
	AbsolutePath string
	Dir          string
	Filename     string
	Stat         fs.FileInfo
}

func (p *FilePath) Root() string      { return p.Dir }
func (p *FilePath) Abs() string       { return p.AbsolutePath }
func (p *FilePath) Info() fs.FileInfo { return p.Stat }
func (p *FilePath) pathInfo()         {}

// ResolvePath joins the configured path onto cwd and stats it once through
// the bound filesystem. A missing path is reported as *engine.NotFoundError,
// which still matches fs.ErrNotExist.
func ResolvePath(ctx context.Context, r *config.Resolved, cwd string) (PathInfo, error) {
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		cwd = wd
	}

	abs := r.Path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(cwd, abs)
	}
	abs = filepath.Clean(abs)

	info, err := r.FS.Stat(ctx, abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &engine.NotFoundError{Path: abs, Err: err}
		}
		return nil, err
	}

	if info.IsDir() {
		return &DirPath{AbsolutePath: abs, Stat: info}, nil
	}
	return &FilePath{
		AbsolutePath: abs,
		Dir:          filepath.Dir(abs),
		Filename:     filepath.Base(abs),
		Stat:         info,
	}, nil
}
