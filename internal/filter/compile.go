// internal/filter/compile.go
package filter

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/FairForge/fsource/internal/engine"
)

// Compile validates c and returns its predicate. Path based variants match
// the record's relative path converted to forward slashes with style.
func Compile(c Criteria, style engine.PathStyle) (Predicate, error) {
	switch c.kind {
	case KindNone:
		return func(*engine.File) (bool, error) { return true, nil }, nil

	case KindBool:
		v := c.value
		return func(*engine.File) (bool, error) { return v, nil }, nil

	case KindGlob:
		return compileGlob(c.patterns, style)

	case KindRegexp:
		if c.re == nil {
			return nil, engine.ErrValidation("filter", nil, "A regular expression is required.")
		}
		re := c.re
		return func(file *engine.File) (bool, error) {
			return re.MatchString(style.ToSlash(file.Path)), nil
		}, nil

	case KindFunc:
		if c.fn == nil {
			return nil, engine.ErrValidation("filter", nil, "A function is required.")
		}
		return guard(c.fn), nil

	default:
		return nil, engine.ErrValidation("filter", c.kind.String(), "Unsupported filter criteria.")
	}
}

func compileGlob(patterns []string, style engine.PathStyle) (Predicate, error) {
	if len(patterns) == 0 {
		return nil, engine.ErrValidation("filter", patterns, "At least one glob pattern is required.")
	}

	var include, exclude []string
	for _, p := range patterns {
		// "!(" opens a negated group, not an exclusion
		neg := strings.HasPrefix(p, "!") && !strings.HasPrefix(p, "!(")
		if neg {
			p = p[1:]
		}
		expanded, err := expandExtglob(p)
		if err != nil {
			return nil, engine.ErrValidation("filter", p, "Only @(...) extended glob groups are supported.")
		}
		if expanded == "" || !doublestar.ValidatePattern(expanded) {
			return nil, engine.ErrValidation("filter", p, "Invalid glob pattern.")
		}
		p = expanded
		if neg {
			exclude = append(exclude, p)
		} else {
			include = append(include, p)
		}
	}

	return func(file *engine.File) (bool, error) {
		rel := style.ToSlash(file.Path)

		for _, p := range exclude {
			if doublestar.MatchUnvalidated(p, rel) {
				return false, nil
			}
		}
		if len(include) == 0 {
			return true, nil
		}
		for _, p := range include {
			if doublestar.MatchUnvalidated(p, rel) {
				return true, nil
			}
		}
		return false, nil
	}, nil
}

// guard turns a panic inside a caller supplied function into an error
func guard(fn Func) Predicate {
	return func(file *engine.File) (ok bool, err error) {
		defer func() {
			if r := recover(); r != nil {
				ok, err = false, fmt.Errorf("filter panicked: %v", r)
			}
		}()
		return fn(file)
	}
}
