package resourcefs

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

var (
	// ErrInvalidPath is returned when a virtual path fails sanitization
	ErrInvalidPath = errors.New("invalid virtual path")
	// ErrReadOnly is returned when a mutating operation reaches a read-only store
	ErrReadOnly = errors.New("store is read-only")
	// ErrNotFound reports that no store could satisfy a lookup. It is the same
	// value as fs.ErrNotExist so os.IsNotExist and errors.Is both work.
	ErrNotFound = fs.ErrNotExist
	// ErrIsDirectory is returned when a directory is opened as a file
	ErrIsDirectory = errors.New("is a directory")
	// ErrNotEmpty is returned when Remove targets a non-empty directory
	ErrNotEmpty = errors.New("directory not empty")
)

// IOError wraps a failure reported by the underlying storage medium with
// the operation, the virtual path and the store that produced it.
type IOError struct {
	Op    string
	Path  string
	Store string
	Err   error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s (store %s): %v", e.Op, e.Path, e.Store, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Attempt records why a single store failed an overlay lookup.
type Attempt struct {
	Store string
	Err   error
}

// NotFoundError is returned by overlay reads when every mounted store failed.
// Attempts holds one entry per store searched, in mount order.
type NotFoundError struct {
	Op       string
	Path     string
	Attempts []Attempt
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: not found in %d store(s)", e.Op, e.Path, len(e.Attempts))
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "\n\t%s: %v", a.Store, a.Err)
	}
	return b.String()
}

// Is reports true for ErrNotFound regardless of what individual stores said.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Unwrap exposes the per-store errors to errors.Is and errors.As.
func (e *NotFoundError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

func invalidPath(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: ErrInvalidPath}
}

func readOnly(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: ErrReadOnly}
}
