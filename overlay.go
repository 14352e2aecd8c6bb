package resourcefs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
)

// Overlay merges an ordered chain of stores into one namespace. Stores are
// searched in mount order, so the first store pushed has the highest
// precedence for reads.
//
// An Overlay is not safe for concurrent mutation of its mount list; mount
// and unmount during setup, before lookups start.
type Overlay struct {
	name   string
	stores []Store
	logger *log.Logger
}

// NewOverlay creates an empty overlay. A nil logger discards output.
func NewOverlay(name string, logger *log.Logger) *Overlay {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Overlay{
		name:   name,
		stores: make([]Store, 0),
		logger: logger.With("overlay", name),
	}
}

// Name returns the overlay's name
func (o *Overlay) Name() string { return o.name }

// PushBack mounts s after every store already in the chain
func (o *Overlay) PushBack(s Store) {
	o.stores = append(o.stores, s)
	o.logger.Info("mounted store", "store", storeName(s), "position", len(o.stores)-1)
}

// Unmount removes every store whose root matches root and closes it if it
// holds resources. A relative root is also compared in its absolute form.
// It reports whether anything was removed.
func (o *Overlay) Unmount(root string) bool {
	candidates := []string{cleanRoot(root)}
	if abs, err := filepath.Abs(root); err == nil && abs != candidates[0] {
		candidates = append(candidates, abs)
	}
	kept := o.stores[:0]
	removed := false
	for _, s := range o.stores {
		if !slices.Contains(candidates, cleanRoot(s.Root())) {
			kept = append(kept, s)
			continue
		}
		removed = true
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				o.logger.Warn("closing unmounted store", "store", storeName(s), "err", err)
			}
		}
		o.logger.Info("unmounted store", "store", storeName(s))
	}
	clear(o.stores[len(kept):])
	o.stores = kept
	return removed
}

// Stores returns the mounted stores in search order
func (o *Overlay) Stores() []Store {
	return append([]Store(nil), o.stores...)
}

// Roots returns the root identity of every mounted store in search order
func (o *Overlay) Roots() []string {
	roots := make([]string, len(o.stores))
	for i, s := range o.stores {
		roots[i] = s.Root()
	}
	return roots
}

// Len returns the number of mounted stores
func (o *Overlay) Len() int { return len(o.stores) }

// OpenOptions opens name in the first store that accepts it. When every
// store fails the returned *NotFoundError lists each store's reason.
// Sanitization is the same for every store, so an invalid path fails once
// without consulting any of them.
func (o *Overlay) OpenOptions(name string, opts OpenOptions) (File, error) {
	if _, ok := Sanitize(name); !ok {
		return nil, invalidPath("open", name)
	}
	attempts := make([]Attempt, 0, len(o.stores))
	for _, s := range o.stores {
		f, err := s.OpenOptions(name, opts)
		if err == nil {
			return newHandle(f, name, s.Root(), o.logger), nil
		}
		o.logger.Debug("open attempt failed", "path", name, "store", storeName(s), "err", err)
		attempts = append(attempts, Attempt{Store: storeName(s), Err: err})
	}
	return nil, &NotFoundError{Op: "open", Path: name, Attempts: attempts}
}

// Open opens name for reading
func (o *Overlay) Open(name string) (File, error) {
	return o.OpenOptions(name, readOptions)
}

// Create opens name for writing, creating or truncating it
func (o *Overlay) Create(name string) (File, error) {
	return o.OpenOptions(name, createOptions)
}

// Append opens name for appending, creating it if needed
func (o *Overlay) Append(name string) (File, error) {
	return o.OpenOptions(name, appendOptions)
}

// Mkdir creates a directory in the first store that accepts it
func (o *Overlay) Mkdir(name string) error {
	return o.mutate("mkdir", name, Store.Mkdir)
}

// Remove deletes a file or empty directory from the first store that can
func (o *Overlay) Remove(name string) error {
	return o.mutate("remove", name, Store.Remove)
}

// RemoveAll recursively deletes name from the first store that can
func (o *Overlay) RemoveAll(name string) error {
	return o.mutate("removeall", name, Store.RemoveAll)
}

// mutate runs do against each store until one succeeds. Failures are not
// aggregated: the result is ErrReadOnly if every store refused to be
// written, ErrNotFound if every writable store lacked the path, and
// otherwise the first other failure, such as a non-empty directory.
func (o *Overlay) mutate(op, name string, do func(Store, string) error) error {
	if _, ok := Sanitize(name); !ok {
		return invalidPath(op, name)
	}
	allReadOnly := len(o.stores) > 0
	var cause error
	for _, s := range o.stores {
		err := do(s, name)
		if err == nil {
			return nil
		}
		o.logger.Debug(op+" attempt failed", "path", name, "store", storeName(s), "err", err)
		if errors.Is(err, ErrReadOnly) {
			continue
		}
		allReadOnly = false
		if cause == nil && !errors.Is(err, ErrNotFound) {
			cause = err
		}
	}
	switch {
	case allReadOnly:
		return &fs.PathError{Op: op, Path: name, Err: ErrReadOnly}
	case cause != nil:
		return cause
	}
	return &fs.PathError{Op: op, Path: name, Err: ErrNotFound}
}

// Exists reports whether any store has an entry at name
func (o *Overlay) Exists(name string) bool {
	for _, s := range o.stores {
		if s.Exists(name) {
			return true
		}
	}
	return false
}

// Metadata returns the metadata from the first store that has name
func (o *Overlay) Metadata(name string) (Metadata, error) {
	if _, ok := Sanitize(name); !ok {
		return Metadata{}, invalidPath("stat", name)
	}
	attempts := make([]Attempt, 0, len(o.stores))
	for _, s := range o.stores {
		m, err := s.Metadata(name)
		if err == nil {
			return m, nil
		}
		attempts = append(attempts, Attempt{Store: storeName(s), Err: err})
	}
	return Metadata{}, &NotFoundError{Op: "stat", Path: name, Attempts: attempts}
}

// ReadDir concatenates the listings of every store that can list name, in
// mount order. Entries present in several stores appear once per store.
// Stores that fail are skipped; if none succeed the result is a
// *NotFoundError.
func (o *Overlay) ReadDir(name string) ([]string, error) {
	if _, ok := Sanitize(name); !ok {
		return nil, invalidPath("readdir", name)
	}
	var (
		paths    []string
		listed   bool
		attempts []Attempt
	)
	for _, s := range o.stores {
		entries, err := s.ReadDir(name)
		if err != nil {
			o.logger.Debug("readdir attempt failed", "path", name, "store", storeName(s), "err", err)
			attempts = append(attempts, Attempt{Store: storeName(s), Err: err})
			continue
		}
		listed = true
		paths = append(paths, entries...)
	}
	if !listed {
		return nil, &NotFoundError{Op: "readdir", Path: name, Attempts: attempts}
	}
	return paths, nil
}

func storeName(s Store) string {
	if str, ok := s.(fmt.Stringer); ok {
		return str.String()
	}
	return s.Root()
}

func cleanRoot(root string) string {
	if root == "" {
		return root
	}
	return filepath.Clean(root)
}
