package resourcefs

import (
	"errors"
	"io"
	"io/fs"
	"strings"

	"github.com/charmbracelet/log"
)

// Filesystem owns the two namespaces a game uses: resources, searched for
// shipped assets and never written through this type, and user, holding
// settings, saves and other per-user data.
type Filesystem struct {
	resources *Overlay
	user      *Overlay
	logger    *log.Logger

	pending []func(*Filesystem)
}

// Option is a functional option for configuring a Filesystem
type Option func(*Filesystem)

// WithLogger sets the logger used by the filesystem and both namespaces
func WithLogger(logger *log.Logger) Option {
	return func(f *Filesystem) {
		f.logger = logger
	}
}

// WithResourceStore mounts s at the end of the resource namespace
func WithResourceStore(s Store) Option {
	return func(f *Filesystem) {
		f.pending = append(f.pending, func(f *Filesystem) { f.resources.PushBack(s) })
	}
}

// WithUserStore mounts s at the end of the user namespace
func WithUserStore(s Store) Option {
	return func(f *Filesystem) {
		f.pending = append(f.pending, func(f *Filesystem) { f.user.PushBack(s) })
	}
}

// New creates a Filesystem with the specified options
func New(opts ...Option) *Filesystem {
	f := &Filesystem{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = log.New(io.Discard)
	}
	f.resources = NewOverlay("resources", f.logger)
	f.user = NewOverlay("user", f.logger)
	for _, mount := range f.pending {
		mount(f)
	}
	f.pending = nil
	return f
}

// Resources returns the resource namespace
func (f *Filesystem) Resources() *Overlay { return f.resources }

// User returns the user namespace
func (f *Filesystem) User() *Overlay { return f.user }

// Logger returns the filesystem's logger
func (f *Filesystem) Logger() *log.Logger { return f.logger }

// Mount appends a directory on the host to the resource namespace
func (f *Filesystem) Mount(root string, readonly bool) error {
	var opts []StoreOption
	if readonly {
		opts = append(opts, WithReadOnly())
	}
	s, err := NewPhysicalStore(root, opts...)
	if err != nil {
		return err
	}
	f.resources.PushBack(s)
	return nil
}

// MountResourceStore appends s to the resource namespace
func (f *Filesystem) MountResourceStore(s Store) { f.resources.PushBack(s) }

// MountUserStore appends s to the user namespace
func (f *Filesystem) MountUserStore(s Store) { f.user.PushBack(s) }

// UnmountResourceStore removes resource stores whose root is root
func (f *Filesystem) UnmountResourceStore(root string) bool { return f.resources.Unmount(root) }

// UnmountUserStore removes user stores whose root is root
func (f *Filesystem) UnmountUserStore(root string) bool { return f.user.Unmount(root) }

// Close unmounts every store from both namespaces, releasing any archives.
func (f *Filesystem) Close() error {
	var errs []error
	for _, o := range []*Overlay{f.resources, f.user} {
		for _, s := range o.Stores() {
			if c, ok := s.(io.Closer); ok {
				if err := c.Close(); err != nil {
					errs = append(errs, err)
				}
			}
		}
		clear(o.stores)
		o.stores = o.stores[:0]
	}
	return errors.Join(errs...)
}

// Open opens a resource for reading
func (f *Filesystem) Open(name string) (File, error) {
	return f.resources.Open(name)
}

// OpenOptions opens name with explicit options. Options that could modify
// a file are served by the user namespace; plain reads by resources.
func (f *Filesystem) OpenOptions(name string, opts OpenOptions) (File, error) {
	if opts.Mutating() {
		return f.user.OpenOptions(name, opts)
	}
	return f.resources.OpenOptions(name, opts)
}

// ReadFile returns the whole contents of a resource
func (f *Filesystem) ReadFile(name string) ([]byte, error) {
	return readAll(f.resources, name)
}

// Exists reports whether a resource exists
func (f *Filesystem) Exists(name string) bool { return f.resources.Exists(name) }

// IsFile reports whether name is a file in the resource namespace. Lookup
// errors count as false.
func (f *Filesystem) IsFile(name string) bool {
	m, err := f.resources.Metadata(name)
	return err == nil && m.IsFile()
}

// IsDir reports whether name is a directory in the resource namespace.
// Lookup errors count as false.
func (f *Filesystem) IsDir(name string) bool {
	m, err := f.resources.Metadata(name)
	return err == nil && m.IsDir()
}

// Metadata describes a resource
func (f *Filesystem) Metadata(name string) (Metadata, error) {
	return f.resources.Metadata(name)
}

// ReadDir lists a resource directory across every resource store
func (f *Filesystem) ReadDir(name string) ([]string, error) {
	return f.resources.ReadDir(name)
}

// FindResource looks for suffix below each prefix in turn and opens the
// first match. prefixes are virtual directories such as "/" or "/textures".
// If nothing matches, the error lists every candidate that was tried.
func (f *Filesystem) FindResource(prefixes []string, suffix string) (File, error) {
	attempts := make([]Attempt, 0, len(prefixes))
	for _, prefix := range prefixes {
		candidate := joinVirtual(prefix, suffix)
		file, err := f.resources.Open(candidate)
		if err == nil {
			return file, nil
		}
		attempts = append(attempts, Attempt{Store: candidate, Err: err})
	}
	return nil, &NotFoundError{Op: "find", Path: suffix, Attempts: attempts}
}

// UserOpen opens a user file for reading
func (f *Filesystem) UserOpen(name string) (File, error) {
	return f.user.Open(name)
}

// UserOpenOptions opens a user file with explicit options
func (f *Filesystem) UserOpenOptions(name string, opts OpenOptions) (File, error) {
	return f.user.OpenOptions(name, opts)
}

// UserCreate creates or truncates a user file
func (f *Filesystem) UserCreate(name string) (File, error) {
	return f.user.Create(name)
}

// UserAppend opens a user file for appending, creating it if needed
func (f *Filesystem) UserAppend(name string) (File, error) {
	return f.user.Append(name)
}

// UserReadFile returns the whole contents of a user file
func (f *Filesystem) UserReadFile(name string) ([]byte, error) {
	return readAll(f.user, name)
}

// UserWriteFile replaces the contents of a user file
func (f *Filesystem) UserWriteFile(name string, data []byte) error {
	w, err := f.user.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}

// UserCreateDir creates a user directory and its parents
func (f *Filesystem) UserCreateDir(name string) error { return f.user.Mkdir(name) }

// UserDelete removes a user file or empty directory
func (f *Filesystem) UserDelete(name string) error { return f.user.Remove(name) }

// UserDeleteAll removes a user path recursively
func (f *Filesystem) UserDeleteAll(name string) error { return f.user.RemoveAll(name) }

// UserExists reports whether a user path exists
func (f *Filesystem) UserExists(name string) bool { return f.user.Exists(name) }

// UserMetadata describes a user path
func (f *Filesystem) UserMetadata(name string) (Metadata, error) {
	return f.user.Metadata(name)
}

// UserReadDir lists a user directory
func (f *Filesystem) UserReadDir(name string) ([]string, error) {
	return f.user.ReadDir(name)
}

// LogAll logs every mounted store and every path it can see at debug level.
func (f *Filesystem) LogAll() {
	for _, o := range []*Overlay{f.resources, f.user} {
		for _, s := range o.stores {
			f.logger.Debug("store", "overlay", o.name, "store", storeName(s))
			walkStore(s, "/", func(p string, m Metadata) {
				f.logger.Debug("  entry", "path", p, "dir", m.IsDir(), "size", m.Len())
			})
		}
	}
}

func walkStore(s Store, dir string, fn func(string, Metadata)) {
	entries, err := s.ReadDir(dir)
	if err != nil {
		return
	}
	for _, p := range entries {
		m, err := s.Metadata(p)
		if err != nil {
			continue
		}
		fn(p, m)
		if m.IsDir() {
			walkStore(s, p, fn)
		}
	}
}

func readAll(o *Overlay, name string) ([]byte, error) {
	r, err := o.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return data, nil
}

// joinVirtual joins a virtual directory prefix and a relative suffix
// without cleaning, so traversal in either part is still rejected by the
// stores.
func joinVirtual(prefix, suffix string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	suffix = strings.TrimPrefix(suffix, "/")
	if suffix == "" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	return prefix + "/" + suffix
}

// IsNotFound reports whether err means that nothing exists at a path
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsReadOnly reports whether err came from a write to a read-only store
func IsReadOnly(err error) bool { return errors.Is(err, ErrReadOnly) }

// IsInvalidPath reports whether err came from a rejected virtual path
func IsInvalidPath(err error) bool { return errors.Is(err, ErrInvalidPath) }
