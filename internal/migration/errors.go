package migration

import (
	"errors"
	"fmt"
)

// ErrIO is matched by every IOError.
var ErrIO = errors.New("migration source i/o failure")

// ErrParse is matched by every ParseError.
var ErrParse = errors.New("migration source parse failure")

// ErrDuplicateVersion indicates two files resolve to the same version.
var ErrDuplicateVersion = errors.New("duplicate migration version")

// IOError reports a directory that cannot be listed or a file that cannot be read.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrIO and the underlying filesystem error.
func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// ParseError reports an unusable filename pattern, a version that cannot be
// ordered, or a duplicate version.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %q: %v", e.Input, e.Err)
}

// Unwrap exposes both ErrParse and the underlying cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}
