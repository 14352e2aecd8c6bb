package resourcefs

import (
	"io"
	"time"
)

// File is an open handle returned by a Store.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	Sync() error
}

// Metadata describes a file or directory found in a Store.
type Metadata struct {
	Dir     bool
	Size    int64
	ModTime time.Time
}

// IsDir reports whether the entry is a directory
func (m Metadata) IsDir() bool { return m.Dir }

// IsFile reports whether the entry is a regular file
func (m Metadata) IsFile() bool { return !m.Dir }

// Len returns the size in bytes (zero for directories)
func (m Metadata) Len() int64 { return m.Size }

// Store is a single backing store mounted into an Overlay. Every path
// argument is an absolute virtual path; implementations sanitize it against
// their own root before touching storage.
type Store interface {
	// Root identifies the store. Overlays unmount stores by this value.
	Root() string

	OpenOptions(path string, opts OpenOptions) (File, error)
	Mkdir(path string) error
	Remove(path string) error
	RemoveAll(path string) error
	Exists(path string) bool
	Metadata(path string) (Metadata, error)
	// ReadDir returns the virtual paths of the entries in a directory.
	ReadDir(path string) ([]string, error)
}

// storeFlags holds the settings shared by every store implementation
type storeFlags struct {
	readOnly bool
	foldCase bool
}

// StoreOption configures a store at construction time
type StoreOption func(*storeFlags)

// WithReadOnly makes every mutating operation on the store fail with
// ErrReadOnly before any I/O happens.
func WithReadOnly() StoreOption {
	return func(f *storeFlags) {
		f.readOnly = true
	}
}

// WithCaseInsensitiveFallback retries failed lookups by matching each path
// component case-insensitively against directory entries.
func WithCaseInsensitiveFallback() StoreOption {
	return func(f *storeFlags) {
		f.foldCase = true
	}
}

func newStoreFlags(opts []StoreOption) storeFlags {
	var f storeFlags
	for _, opt := range opts {
		opt(&f)
	}
	return f
}
