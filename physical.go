package resourcefs

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// PhysicalStore serves files from a directory on the host filesystem.
type PhysicalStore struct {
	root string
	storeFlags
}

var _ Store = (*PhysicalStore)(nil)

// NewPhysicalStore creates a store rooted at dir. The root is resolved to an
// absolute path once; it does not need to exist yet.
func NewPhysicalStore(dir string, opts ...StoreOption) (*PhysicalStore, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &PhysicalStore{root: root, storeFlags: newStoreFlags(opts)}, nil
}

// Root returns the absolute native directory backing the store
func (s *PhysicalStore) Root() string { return s.root }

// ReadOnly reports whether mutations are rejected
func (s *PhysicalStore) ReadOnly() bool { return s.readOnly }

func (s *PhysicalStore) String() string {
	if s.readOnly {
		return "dir:" + s.root + " (ro)"
	}
	return "dir:" + s.root
}

// resolve sanitizes name and maps it to a native path under the root.
// With mutating set, a read-only store fails before any native lookup.
func (s *PhysicalStore) resolve(op, name string, mutating bool) (string, error) {
	parts, ok := sanitizeComponents(name)
	if !ok {
		return "", invalidPath(op, name)
	}
	if mutating && s.readOnly {
		return "", readOnly(op, name)
	}
	native := filepath.Join(append([]string{s.root}, parts...)...)
	if !s.foldCase || len(parts) == 0 {
		return native, nil
	}
	if _, err := os.Lstat(native); err == nil {
		return native, nil
	}
	if folded, ok := foldPath(osFolder{}, s.root, parts); ok {
		return folded, nil
	}
	return native, nil
}

func (s *PhysicalStore) ioError(op, name string, err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		// Drop the native path so it does not leak into messages.
		err = pathErr.Err
	}
	return &IOError{Op: op, Path: name, Store: s.root, Err: err}
}

// OpenOptions opens name with the given options
func (s *PhysicalStore) OpenOptions(name string, opts OpenOptions) (File, error) {
	native, err := s.resolve("open", name, opts.Mutating())
	if err != nil {
		return nil, err
	}
	if opts.Mutating() {
		// Opening a directory for writing fails with a platform errno.
		if info, err := os.Stat(native); err == nil && info.IsDir() {
			return nil, s.ioError("open", name, ErrIsDirectory)
		}
		if err := os.MkdirAll(s.root, 0o755); err != nil {
			return nil, s.ioError("open", name, err)
		}
	}

	f, err := os.OpenFile(native, opts.Flags(), 0o644)
	if err != nil {
		return nil, s.ioError("open", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, s.ioError("open", name, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, s.ioError("open", name, ErrIsDirectory)
	}
	return f, nil
}

// Mkdir creates name and any missing parents. Creating an existing
// directory succeeds.
func (s *PhysicalStore) Mkdir(name string) error {
	native, err := s.resolve("mkdir", name, true)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(native, 0o755); err != nil {
		return s.ioError("mkdir", name, err)
	}
	return nil
}

// Remove deletes a file or an empty directory
func (s *PhysicalStore) Remove(name string) error {
	native, err := s.resolve("remove", name, true)
	if err != nil {
		return err
	}
	info, err := os.Lstat(native)
	if err != nil {
		return s.ioError("remove", name, err)
	}
	if info.IsDir() {
		empty, err := emptyDir(native)
		if err != nil {
			return s.ioError("remove", name, err)
		}
		if !empty {
			return s.ioError("remove", name, ErrNotEmpty)
		}
	}
	if err := os.Remove(native); err != nil {
		return s.ioError("remove", name, err)
	}
	return nil
}

func emptyDir(native string) (bool, error) {
	d, err := os.Open(native)
	if err != nil {
		return false, err
	}
	defer d.Close()
	_, err = d.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

// RemoveAll deletes name and everything below it. Unlike os.RemoveAll it
// fails with ErrNotFound when nothing exists at name.
func (s *PhysicalStore) RemoveAll(name string) error {
	native, err := s.resolve("removeall", name, true)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(native); err != nil {
		return s.ioError("removeall", name, err)
	}
	if err := os.RemoveAll(native); err != nil {
		return s.ioError("removeall", name, err)
	}
	return nil
}

// Exists reports whether anything exists at name
func (s *PhysicalStore) Exists(name string) bool {
	native, err := s.resolve("stat", name, false)
	if err != nil {
		return false
	}
	_, err = os.Stat(native)
	return err == nil
}

// Metadata describes the entry at name
func (s *PhysicalStore) Metadata(name string) (Metadata, error) {
	native, err := s.resolve("stat", name, false)
	if err != nil {
		return Metadata{}, err
	}
	info, err := os.Stat(native)
	if err != nil {
		return Metadata{}, s.ioError("stat", name, err)
	}
	return metadataFromInfo(info), nil
}

// ReadDir lists the directory at name. The returned paths are virtual and
// can be passed back to this store.
func (s *PhysicalStore) ReadDir(name string) ([]string, error) {
	native, err := s.resolve("readdir", name, false)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(native)
	if err != nil {
		return nil, s.ioError("readdir", name, err)
	}
	paths := make([]string, len(entries))
	for i, entry := range entries {
		paths[i] = path.Join(name, entry.Name())
	}
	return paths, nil
}

func metadataFromInfo(info fs.FileInfo) Metadata {
	m := Metadata{Dir: info.IsDir(), ModTime: info.ModTime()}
	if !m.Dir {
		m.Size = info.Size()
	}
	return m
}

// osFolder resolves case-insensitive paths against the host filesystem
type osFolder struct{}

func (osFolder) exists(name string) bool {
	_, err := os.Lstat(name)
	return err == nil
}

func (osFolder) names(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func (osFolder) join(dir, name string) string { return filepath.Join(dir, name) }
