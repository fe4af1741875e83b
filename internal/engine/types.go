// internal/engine/types.go
package engine

import (
	"path/filepath"
	"strings"
	"time"
)

// ChangeKind tags records produced by a watch session
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// DepthUnbounded disables the depth limit for crawls and watches
const DepthUnbounded = -1

// File is the record handed to the host pipeline for every file that is read,
// created, modified or deleted.
type File struct {
	// Path is relative to the source root and uses OS separators.
	Path string `json:"path"`

	// Source is the file:// URI of the absolute path.
	Source string `json:"source"`

	// CreatedAt and ModifiedAt are zero when the record was built without stat info.
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt,omitempty"`

	Metadata map[string]interface{} `json:"metadata"`
	Contents []byte                 `json:"-"`

	// Change is empty for records produced by a one-shot read.
	Change ChangeKind `json:"change,omitempty"`
}

// Name returns the base name of the file
func (f *File) Name() string {
	return filepath.Base(f.Path)
}

// Extension returns the file extension including the leading dot
func (f *File) Extension() string {
	return strings.ToLower(filepath.Ext(f.Path))
}

// Size returns the length of the loaded contents
func (f *File) Size() int {
	return len(f.Contents)
}

// Run carries the per-session values the host pipeline supplies.
type Run struct {
	// Cwd resolves relative source paths. Empty means the process working directory.
	Cwd string

	// Concurrency bounds simultaneous reads. Values below 1 are treated as 1.
	Concurrency int
}

// Limit returns the effective concurrency window
func (r Run) Limit() int {
	if r.Concurrency < 1 {
		return 1
	}
	return r.Concurrency
}

// WithinDepth reports whether a relative file path sits no deeper than depth
// directories below the root.
func WithinDepth(rel string, depth int) bool {
	if depth == DepthUnbounded {
		return true
	}
	return strings.Count(filepath.ToSlash(rel), "/") <= depth
}
