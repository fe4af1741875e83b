// internal/filter/criteria.go

// Package filter turns user supplied match criteria into a predicate over
// file records.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/FairForge/fsource/internal/engine"
)

// Kind identifies which variant a Criteria holds
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindGlob
	KindRegexp
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindGlob:
		return "glob"
	case KindRegexp:
		return "regexp"
	case KindFunc:
		return "func"
	default:
		return "unknown"
	}
}

// Func is a caller supplied match function
type Func func(file *engine.File) (bool, error)

// Predicate is the compiled form of a Criteria. It is safe for concurrent use
// as long as any wrapped Func is.
type Predicate func(file *engine.File) (bool, error)

// Criteria is the unresolved match rule. The zero value matches everything.
type Criteria struct {
	kind     Kind
	value    bool
	patterns []string
	re       *regexp.Regexp
	fn       Func
}

// None matches every file
func None() Criteria {
	return Criteria{}
}

// Bool matches every file or none
func Bool(v bool) Criteria {
	return Criteria{kind: KindBool, value: v}
}

// Glob matches relative paths against patterns. A pattern starting with "!"
// excludes; a file passes when it matches any inclusion (or there are none)
// and no exclusion.
func Glob(patterns ...string) Criteria {
	return Criteria{kind: KindGlob, patterns: append([]string(nil), patterns...)}
}

// Regexp matches relative paths, with forward slashes, against re
func Regexp(re *regexp.Regexp) Criteria {
	return Criteria{kind: KindRegexp, re: re}
}

// Match wraps a caller supplied function
func Match(fn Func) Criteria {
	return Criteria{kind: KindFunc, fn: fn}
}

// Kind reports the variant
func (c Criteria) Kind() Kind {
	return c.kind
}

// IsNone reports whether no criteria was given
func (c Criteria) IsNone() bool {
	return c.kind == KindNone
}

// Patterns returns a copy of the glob patterns
func (c Criteria) Patterns() []string {
	return append([]string(nil), c.patterns...)
}

// SingleGlob returns the pattern, with @(...) groups rewritten as braces,
// when the criteria is exactly one positive glob. Watchers use it to narrow
// what the OS reports.
func (c Criteria) SingleGlob() (string, bool) {
	if c.kind != KindGlob || len(c.patterns) != 1 || strings.HasPrefix(c.patterns[0], "!") {
		return "", false
	}
	glob, err := expandExtglob(c.patterns[0])
	if err != nil {
		return "", false
	}
	return glob, true
}

func (c Criteria) String() string {
	switch c.kind {
	case KindBool:
		return fmt.Sprintf("%t", c.value)
	case KindGlob:
		return strings.Join(c.patterns, ", ")
	case KindRegexp:
		if c.re == nil {
			return "<nil regexp>"
		}
		return "/" + c.re.String() + "/"
	case KindFunc:
		return "<func>"
	default:
		return "<none>"
	}
}
