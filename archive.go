package resourcefs

import (
	"bytes"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ArchiveStore serves the contents of a zip archive. It is always read-only.
type ArchiveStore struct {
	root   string
	closer io.Closer
	flags  storeFlags

	files map[string]*zip.File
	dirs  map[string][]string // directory -> sorted child names
	lower map[string]string   // lower-cased path -> stored path
}

var _ Store = (*ArchiveStore)(nil)

// OpenArchiveStore opens the zip archive at archivePath. The store owns the
// file until Close is called.
func OpenArchiveStore(archivePath string, opts ...StoreOption) (*ArchiveStore, error) {
	abs, err := filepath.Abs(archivePath)
	if err != nil {
		return nil, err
	}
	rc, err := zip.OpenReader(abs)
	if err != nil {
		return nil, err
	}
	s := newArchiveStore(abs, &rc.Reader, opts)
	s.closer = rc
	return s, nil
}

// NewArchiveStore reads a zip archive from r. id becomes the store's Root.
func NewArchiveStore(id string, r io.ReaderAt, size int64, opts ...StoreOption) (*ArchiveStore, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	return newArchiveStore(id, zr, opts), nil
}

func newArchiveStore(root string, zr *zip.Reader, opts []StoreOption) *ArchiveStore {
	flags := newStoreFlags(opts)
	flags.readOnly = true
	s := &ArchiveStore{
		root:  root,
		flags: flags,
		files: make(map[string]*zip.File),
		dirs:  make(map[string][]string),
		lower: map[string]string{"": ""},
	}

	children := map[string]map[string]bool{"": {}}
	addDir := func(dir string) {
		for dir != "" {
			if _, ok := children[dir]; ok {
				return
			}
			children[dir] = map[string]bool{}
			s.index(dir)
			parent, base := splitArchivePath(dir)
			if children[parent] == nil {
				children[parent] = map[string]bool{}
			}
			children[parent][base] = true
			dir = parent
		}
	}

	for _, f := range zr.File {
		name := strings.Trim(path.Clean("/"+f.Name), "/")
		if name == "" || name == "." {
			continue
		}
		if strings.HasSuffix(f.Name, "/") {
			addDir(name)
			continue
		}
		parent, base := splitArchivePath(name)
		addDir(parent)
		children[parent][base] = true
		s.files[name] = f
		s.index(name)
	}

	for dir, set := range children {
		names := make([]string, 0, len(set))
		for n := range set {
			names = append(names, n)
		}
		sort.Strings(names)
		s.dirs[dir] = names
	}
	return s
}

// index records name for case-insensitive lookup. The first entry seen for
// a folded name wins.
func (s *ArchiveStore) index(name string) {
	key := strings.ToLower(name)
	if _, ok := s.lower[key]; !ok {
		s.lower[key] = name
	}
}

func splitArchivePath(name string) (dir, base string) {
	i := strings.LastIndexByte(name, '/')
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}

// Root returns the archive's path or the id it was created with
func (s *ArchiveStore) Root() string { return s.root }

func (s *ArchiveStore) String() string { return "zip:" + s.root }

// Close releases the archive if the store opened it
func (s *ArchiveStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// lookup sanitizes name and returns the stored archive path for it
func (s *ArchiveStore) lookup(op, name string) (string, error) {
	rel, ok := Sanitize(name)
	if !ok {
		return "", invalidPath(op, name)
	}
	if s.known(rel) || !s.flags.foldCase {
		return rel, nil
	}
	if stored, ok := s.lower[strings.ToLower(rel)]; ok {
		return stored, nil
	}
	return rel, nil
}

func (s *ArchiveStore) known(rel string) bool {
	if _, ok := s.files[rel]; ok {
		return true
	}
	_, ok := s.dirs[rel]
	return ok
}

func (s *ArchiveStore) ioError(op, name string, err error) error {
	return &IOError{Op: op, Path: name, Store: s.root, Err: err}
}

// OpenOptions reads the entry into memory and returns a read-only handle
func (s *ArchiveStore) OpenOptions(name string, opts OpenOptions) (File, error) {
	rel, err := s.lookup("open", name)
	if err != nil {
		return nil, err
	}
	if opts.Mutating() {
		return nil, readOnly("open", name)
	}
	if _, ok := s.dirs[rel]; ok {
		return nil, s.ioError("open", name, ErrIsDirectory)
	}
	f, ok := s.files[rel]
	if !ok {
		return nil, s.ioError("open", name, ErrNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, s.ioError("open", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, s.ioError("open", name, err)
	}
	return &archiveFile{Reader: bytes.NewReader(data)}, nil
}

// Mkdir always fails with ErrReadOnly
func (s *ArchiveStore) Mkdir(name string) error {
	if _, ok := Sanitize(name); !ok {
		return invalidPath("mkdir", name)
	}
	return readOnly("mkdir", name)
}

// Remove always fails with ErrReadOnly
func (s *ArchiveStore) Remove(name string) error {
	if _, ok := Sanitize(name); !ok {
		return invalidPath("remove", name)
	}
	return readOnly("remove", name)
}

// RemoveAll always fails with ErrReadOnly
func (s *ArchiveStore) RemoveAll(name string) error {
	if _, ok := Sanitize(name); !ok {
		return invalidPath("removeall", name)
	}
	return readOnly("removeall", name)
}

// Exists reports whether the archive holds a file or directory at name
func (s *ArchiveStore) Exists(name string) bool {
	rel, err := s.lookup("stat", name)
	if err != nil {
		return false
	}
	return s.known(rel)
}

// Metadata describes the entry at name
func (s *ArchiveStore) Metadata(name string) (Metadata, error) {
	rel, err := s.lookup("stat", name)
	if err != nil {
		return Metadata{}, err
	}
	if _, ok := s.dirs[rel]; ok {
		return Metadata{Dir: true}, nil
	}
	f, ok := s.files[rel]
	if !ok {
		return Metadata{}, s.ioError("stat", name, ErrNotFound)
	}
	return Metadata{Size: int64(f.UncompressedSize64), ModTime: f.Modified}, nil
}

// ReadDir lists the entries of an archive directory as virtual paths
func (s *ArchiveStore) ReadDir(name string) ([]string, error) {
	rel, err := s.lookup("readdir", name)
	if err != nil {
		return nil, err
	}
	names, ok := s.dirs[rel]
	if !ok {
		return nil, s.ioError("readdir", name, ErrNotFound)
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = path.Join(name, n)
	}
	return paths, nil
}

// archiveFile is an in-memory copy of an archive entry
type archiveFile struct {
	*bytes.Reader
}

func (f *archiveFile) Write([]byte) (int, error) { return 0, ErrReadOnly }
func (f *archiveFile) Sync() error               { return nil }
func (f *archiveFile) Close() error              { return nil }
