package resourcefs

import (
	"os"
	"path"
	"sort"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"
)

// FilerStore adapts any absfs.FileSystem into a Store. It is how sources
// other than the host disk (in-memory trees, remote or cached filesystems
// from the absfs ecosystem) are mounted.
type FilerStore struct {
	name string
	fs   absfs.FileSystem
	storeFlags
}

var _ Store = (*FilerStore)(nil)

// NewFilerStore mounts fsys under the identity name.
func NewFilerStore(name string, fsys absfs.FileSystem, opts ...StoreOption) *FilerStore {
	return &FilerStore{name: name, fs: fsys, storeFlags: newStoreFlags(opts)}
}

// NewMemoryStore creates a FilerStore backed by a fresh in-memory filesystem.
func NewMemoryStore(name string, opts ...StoreOption) (*FilerStore, error) {
	mfs, err := memfs.NewFS()
	if err != nil {
		return nil, err
	}
	return NewFilerStore(name, mfs, opts...), nil
}

// Root returns the identity the store was created with
func (s *FilerStore) Root() string { return s.name }

// FileSystem returns the wrapped filesystem
func (s *FilerStore) FileSystem() absfs.FileSystem { return s.fs }

func (s *FilerStore) String() string { return "absfs:" + s.name }

func (s *FilerStore) resolve(op, name string, mutating bool) (string, error) {
	parts, ok := sanitizeComponents(name)
	if !ok {
		return "", invalidPath(op, name)
	}
	if mutating && s.readOnly {
		return "", readOnly(op, name)
	}
	p := path.Join(append([]string{"/"}, parts...)...)
	if !s.foldCase || len(parts) == 0 {
		return p, nil
	}
	if _, err := s.fs.Stat(p); err == nil {
		return p, nil
	}
	if folded, ok := foldPath(filerFolder{s.fs}, "/", parts); ok {
		return folded, nil
	}
	return p, nil
}

func (s *FilerStore) ioError(op, name string, err error) error {
	if pe, ok := err.(*os.PathError); ok {
		err = pe.Err
	}
	return &IOError{Op: op, Path: name, Store: s.name, Err: err}
}

// OpenOptions opens name with the given options
func (s *FilerStore) OpenOptions(name string, opts OpenOptions) (File, error) {
	p, err := s.resolve("open", name, opts.Mutating())
	if err != nil {
		return nil, err
	}
	if info, err := s.fs.Stat(p); err == nil && info.IsDir() {
		return nil, s.ioError("open", name, ErrIsDirectory)
	}
	f, err := s.fs.OpenFile(p, opts.Flags(), 0o644)
	if err != nil {
		return nil, s.ioError("open", name, err)
	}
	return f, nil
}

// Mkdir creates name and any missing parents
func (s *FilerStore) Mkdir(name string) error {
	p, err := s.resolve("mkdir", name, true)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(p, 0o755); err != nil {
		return s.ioError("mkdir", name, err)
	}
	return nil
}

// Remove deletes a file or an empty directory
func (s *FilerStore) Remove(name string) error {
	p, err := s.resolve("remove", name, true)
	if err != nil {
		return err
	}
	info, err := s.fs.Stat(p)
	if err != nil {
		return s.ioError("remove", name, err)
	}
	if info.IsDir() {
		names, err := s.names(p)
		if err != nil {
			return s.ioError("remove", name, err)
		}
		if len(names) > 0 {
			return s.ioError("remove", name, ErrNotEmpty)
		}
	}
	if err := s.fs.Remove(p); err != nil {
		return s.ioError("remove", name, err)
	}
	return nil
}

// RemoveAll deletes name and everything below it
func (s *FilerStore) RemoveAll(name string) error {
	p, err := s.resolve("removeall", name, true)
	if err != nil {
		return err
	}
	if _, err := s.fs.Stat(p); err != nil {
		return s.ioError("removeall", name, err)
	}
	if err := s.fs.RemoveAll(p); err != nil {
		return s.ioError("removeall", name, err)
	}
	return nil
}

// Exists reports whether anything exists at name
func (s *FilerStore) Exists(name string) bool {
	p, err := s.resolve("stat", name, false)
	if err != nil {
		return false
	}
	_, err = s.fs.Stat(p)
	return err == nil
}

// Metadata describes the entry at name
func (s *FilerStore) Metadata(name string) (Metadata, error) {
	p, err := s.resolve("stat", name, false)
	if err != nil {
		return Metadata{}, err
	}
	info, err := s.fs.Stat(p)
	if err != nil {
		return Metadata{}, s.ioError("stat", name, err)
	}
	return metadataFromInfo(info), nil
}

// ReadDir lists the directory at name as virtual paths
func (s *FilerStore) ReadDir(name string) ([]string, error) {
	p, err := s.resolve("readdir", name, false)
	if err != nil {
		return nil, err
	}
	names, err := s.names(p)
	if err != nil {
		return nil, s.ioError("readdir", name, err)
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = path.Join(name, n)
	}
	return paths, nil
}

func (s *FilerStore) names(dir string) ([]string, error) {
	return filerFolder{s.fs}.names(dir)
}

// filerFolder resolves case-insensitive paths inside an absfs.FileSystem
type filerFolder struct {
	fs absfs.FileSystem
}

func (f filerFolder) exists(name string) bool {
	_, err := f.fs.Stat(name)
	return err == nil
}

func (f filerFolder) names(dir string) ([]string, error) {
	d, err := f.fs.Open(dir)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	infos, err := d.Readdir(-1)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if n := info.Name(); n != "." && n != ".." {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (filerFolder) join(dir, name string) string { return path.Join(dir, name) }
