package engine

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestErrors_Types(t *testing.T) {
	err := ErrValidation("path", true, "Expected a string.")

	// Check it's the right type
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatal("ErrValidation should return *ValidationError")
	}
	if vErr.Field != "path" {
		t.Errorf("Field = %q, want path", vErr.Field)
	}

	if got := err.Error(); got != "invalid path: true. Expected a string." {
		t.Errorf("unexpected message: %s", got)
	}

	err = ErrValidation("path", "\r \n", "It cannot be all whitespace.")
	if !strings.Contains(err.Error(), `"\r \n"`) {
		t.Errorf("string values should be quoted: %s", err.Error())
	}
}

func TestErrors_Wrapping(t *testing.T) {
	original := &fs.PathError{Op: "stat", Path: "/missing", Err: fs.ErrNotExist}
	var err error = &NotFoundError{Path: "/missing", Err: original}

	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("NotFoundError should unwrap to fs.ErrNotExist")
	}

	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) {
		t.Error("NotFoundError should preserve the underlying *fs.PathError")
	}

	// Test with a typed error
	var ioErr *IOError
	wrapped := WrapError(&IOError{Op: "read", Path: "a.txt", Err: errors.New("disk full")}, "read session failed")
	if !errors.As(wrapped, &ioErr) {
		t.Error("Should preserve error type through wrapping")
	}
	if ioErr.Op != "read" {
		t.Errorf("Op = %q, want read", ioErr.Op)
	}

	cause := errors.New("boom")
	if !errors.Is(&FilterError{Path: "x", Err: cause}, cause) {
		t.Error("FilterError should unwrap to its cause")
	}
}
