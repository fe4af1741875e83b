// internal/filter/split.go
package filter

import (
	"strings"

	"github.com/FairForge/fsource/internal/engine"
)

// HasMeta reports whether a single path segment contains glob syntax,
// including extglob groups and a leading negation. Backslash escapes the next
// character on posix paths.
func HasMeta(segment string, style engine.PathStyle) bool {
	if strings.HasPrefix(segment, "!") {
		return true
	}
	for i := 0; i < len(segment); i++ {
		switch segment[i] {
		case '\\':
			if style == engine.PathStylePosix {
				i++
			}
		case '*', '?', '[', ']', '{', '}', '(', ')':
			return true
		}
	}
	return false
}

// Split separates path at the first segment holding glob syntax. ok is false
// when path is a plain path, in which case dir is path unchanged. A glob with
// no plain prefix resolves to ".", or "/" for absolute patterns.
func Split(path string, style engine.PathStyle) (dir, glob string, ok bool) {
	segments := strings.Split(style.ToSlash(path), "/")
	for i, seg := range segments {
		if !HasMeta(seg, style) {
			continue
		}
		dir = strings.Join(segments[:i], "/")
		glob = strings.Join(segments[i:], "/")
		switch {
		case dir == "" && i > 0:
			dir = "/"
		case dir == "":
			dir = "."
		}
		return style.FromSlash(dir), glob, true
	}
	return path, "", false
}
