// internal/engine/errors.go
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ValidationError reports a malformed source configuration
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s. %s", e.Field, formatValue(e.Value), e.Reason)
}

// ErrValidation builds a ValidationError for field
func ErrValidation(field string, value interface{}, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// NotFoundError reports that the root path of a source does not exist
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s: %v", e.Path, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// FilterError is returned when a filter predicate fails for a file
type FilterError struct {
	Path string
	Err  error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %s: %v", e.Path, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

// IOError is returned when a filesystem operation fails mid-session.
type IOError struct {
	// Op is one of "stat", "readdir", "read" or "watch".
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func WrapError(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// ErrWatcherClosed is returned when Start is called on a watcher that already ran
var ErrWatcherClosed = errors.New("watcher has been disposed")

func formatValue(v interface{}) string {
	if v == nil {
		return "<nil>"
	}
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
