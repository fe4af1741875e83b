// internal/drivers/driver.go
package drivers

import (
	"context"
	"io/fs"
)

// FS is the set of filesystem primitives a source reads through. Paths are
// absolute (or relative to the driver root) and use OS separators.
type FS interface {
	Stat(ctx context.Context, name string) (fs.FileInfo, error)
	Lstat(ctx context.Context, name string) (fs.FileInfo, error)
	ReadDir(ctx context.Context, name string) ([]fs.DirEntry, error)
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

type (
	StatFunc     func(ctx context.Context, name string) (fs.FileInfo, error)
	ReadDirFunc  func(ctx context.Context, name string) ([]fs.DirEntry, error)
	ReadFileFunc func(ctx context.Context, name string) ([]byte, error)
)

// Bindings overrides individual FS primitives. Nil slots fall back to the
// backend passed to Over.
type Bindings struct {
	Stat     StatFunc
	Lstat    StatFunc
	ReadDir  ReadDirFunc
	ReadFile ReadFileFunc
}

// IsZero reports whether no slot is overridden
func (b Bindings) IsZero() bool {
	return b.Stat == nil && b.Lstat == nil && b.ReadDir == nil && b.ReadFile == nil
}

// Over layers the bindings on top of backend
func (b Bindings) Over(backend FS) FS {
	if b.IsZero() {
		return backend
	}
	return &boundFS{bindings: b, backend: backend}
}

type boundFS struct {
	bindings Bindings
	backend  FS
}

func (f *boundFS) Stat(ctx context.Context, name string) (fs.FileInfo, error) {
	if f.bindings.Stat != nil {
		return f.bindings.Stat(ctx, name)
	}
	return f.backend.Stat(ctx, name)
}

func (f *boundFS) Lstat(ctx context.Context, name string) (fs.FileInfo, error) {
	if f.bindings.Lstat != nil {
		return f.bindings.Lstat(ctx, name)
	}
	return f.backend.Lstat(ctx, name)
}

func (f *boundFS) ReadDir(ctx context.Context, name string) ([]fs.DirEntry, error) {
	if f.bindings.ReadDir != nil {
		return f.bindings.ReadDir(ctx, name)
	}
	return f.backend.ReadDir(ctx, name)
}

func (f *boundFS) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if f.bindings.ReadFile != nil {
		return f.bindings.ReadFile(ctx, name)
	}
	return f.backend.ReadFile(ctx, name)
}
