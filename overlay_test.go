package resourcefs

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustMemory(t testing.TB, name string, opts ...StoreOption) *FilerStore {
	t.Helper()
	s, err := NewMemoryStore(name, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func readOverlay(t testing.TB, o *Overlay, name string) string {
	t.Helper()
	f, err := o.Open(name)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// TestOverlayPrecedence tests that the first mounted store wins reads
func TestOverlayPrecedence(t *testing.T) {
	dirs := []string{t.TempDir(), t.TempDir(), t.TempDir()}
	writeNative(t, dirs[0], "shared.txt", "first")
	writeNative(t, dirs[1], "shared.txt", "second")
	writeNative(t, dirs[2], "shared.txt", "third")
	writeNative(t, dirs[2], "only-third.txt", "third")

	o := NewOverlay("resources", nil)
	for _, d := range dirs {
		o.PushBack(mustPhysical(t, d, WithReadOnly()))
	}

	if got := readOverlay(t, o, "/shared.txt"); got != "first" {
		t.Errorf("shared.txt = %q, want first", got)
	}
	if got := readOverlay(t, o, "/only-third.txt"); got != "third" {
		t.Errorf("only-third.txt = %q", got)
	}
	if diff := cmp.Diff(dirs, o.Roots()); diff != "" {
		t.Errorf("Roots mismatch (-want +got):\n%s", diff)
	}
}

// TestOverlayWriteSkipsReadOnly tests writes landing in the first writable store
func TestOverlayWriteSkipsReadOnly(t *testing.T) {
	roDir := t.TempDir()
	rwDir := t.TempDir()

	o := NewOverlay("user", nil)
	o.PushBack(mustPhysical(t, roDir, WithReadOnly()))
	o.PushBack(mustPhysical(t, rwDir))

	f, err := o.Create("/settings.cfg")
	if err != nil {
		t.Fatal(err)
	}
	f.Write([]byte("volume=3"))
	f.Close()

	if s := mustPhysical(t, roDir); s.Exists("/settings.cfg") {
		t.Error("write reached the read-only store")
	}
	if got := readStore(t, mustPhysical(t, rwDir), "/settings.cfg"); got != "volume=3" {
		t.Errorf("writable store has %q", got)
	}
	if err := o.Mkdir("/saves"); err != nil {
		t.Errorf("Mkdir: %v", err)
	}
	if err := o.Remove("/settings.cfg"); err != nil {
		t.Errorf("Remove: %v", err)
	}
}

func TestOverlayNotFoundListsAttempts(t *testing.T) {
	o := NewOverlay("resources", nil)
	a := mustPhysical(t, t.TempDir())
	b := mustMemory(t, "mem")
	o.PushBack(a)
	o.PushBack(b)

	_, err := o.Open("/missing.png")
	if !IsNotFound(err) {
		t.Fatalf("Open error = %v, want not found", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error %T is not *NotFoundError", err)
	}
	if len(nf.Attempts) != 2 {
		t.Fatalf("got %d attempts, want 2", len(nf.Attempts))
	}
	if nf.Attempts[0].Store != a.String() || nf.Attempts[1].Store != b.String() {
		t.Errorf("attempt stores = %q, %q", nf.Attempts[0].Store, nf.Attempts[1].Store)
	}
	msg := err.Error()
	if !strings.Contains(msg, a.Root()) || !strings.Contains(msg, "absfs:mem") {
		t.Errorf("message does not name every store:\n%s", msg)
	}

	if _, err := o.Metadata("/missing.png"); !errors.As(err, &nf) || len(nf.Attempts) != 2 {
		t.Errorf("Metadata error = %v", err)
	}
}

func TestOverlayEmpty(t *testing.T) {
	o := NewOverlay("empty", nil)

	_, err := o.Open("/a")
	var nf *NotFoundError
	if !errors.As(err, &nf) || len(nf.Attempts) != 0 {
		t.Errorf("Open on empty overlay = %v", err)
	}
	if o.Exists("/") {
		t.Error("empty overlay reports existence")
	}
	if _, err := o.ReadDir("/"); !IsNotFound(err) {
		t.Errorf("ReadDir = %v", err)
	}
	if err := o.Mkdir("/a"); !IsNotFound(err) {
		t.Errorf("Mkdir = %v, want not found", err)
	}
}

func TestOverlayInvalidPathShortCircuits(t *testing.T) {
	o := NewOverlay("resources", nil)
	o.PushBack(mustMemory(t, "a"))
	o.PushBack(mustMemory(t, "b"))

	_, err := o.Open("/../secret")
	if !IsInvalidPath(err) {
		t.Fatalf("Open error = %v, want invalid path", err)
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		t.Error("invalid path was aggregated as not found")
	}
	if err := o.Mkdir("relative"); !IsInvalidPath(err) {
		t.Errorf("Mkdir error = %v", err)
	}
	if _, err := o.ReadDir("/a/"); !IsInvalidPath(err) {
		t.Errorf("ReadDir error = %v", err)
	}
	if _, err := o.Metadata("/a/./b"); !IsInvalidPath(err) {
		t.Errorf("Metadata error = %v", err)
	}
}

func TestOverlayMutationAllReadOnly(t *testing.T) {
	o := NewOverlay("resources", nil)
	o.PushBack(mustPhysical(t, t.TempDir(), WithReadOnly()))
	o.PushBack(mustArchive(t, map[string]string{"a.txt": "a"}))

	if err := o.Mkdir("/new"); !IsReadOnly(err) {
		t.Errorf("Mkdir = %v, want read-only", err)
	}
	if err := o.RemoveAll("/a.txt"); !IsReadOnly(err) {
		t.Errorf("RemoveAll = %v, want read-only", err)
	}
	if _, err := o.Create("/x"); !IsNotFound(err) || !IsReadOnly(err) {
		t.Errorf("Create = %v, want not found wrapping read-only", err)
	}
}

func TestOverlayMutationMissingEverywhere(t *testing.T) {
	o := NewOverlay("user", nil)
	o.PushBack(mustPhysical(t, t.TempDir(), WithReadOnly()))
	o.PushBack(mustPhysical(t, t.TempDir()))

	err := o.Remove("/missing")
	if !IsNotFound(err) {
		t.Errorf("Remove = %v, want not found", err)
	}
	if IsReadOnly(err) {
		t.Errorf("Remove = %v, should not report read-only", err)
	}
}

func TestOverlayMutationKeepsStoreFailure(t *testing.T) {
	dir := t.TempDir()
	writeNative(t, dir, "saves/slot1.sav", "state")

	o := NewOverlay("user", nil)
	o.PushBack(mustPhysical(t, t.TempDir(), WithReadOnly()))
	o.PushBack(mustPhysical(t, t.TempDir()))
	o.PushBack(mustPhysical(t, dir))

	err := o.Remove("/saves")
	if !errors.Is(err, ErrNotEmpty) {
		t.Errorf("Remove non-empty = %v, want ErrNotEmpty", err)
	}
	if IsNotFound(err) {
		t.Errorf("Remove of an existing directory reported not found: %v", err)
	}
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("error %T is not *IOError", err)
	}
	if !o.Exists("/saves") {
		t.Error("saves was removed")
	}

	files := NewOverlay("user", nil)
	files.PushBack(mustPhysical(t, t.TempDir(), WithReadOnly()))
	files.PushBack(mustPhysical(t, dir))
	if err := files.Mkdir("/saves/slot1.sav/x"); err == nil || IsNotFound(err) || IsReadOnly(err) {
		t.Errorf("Mkdir below a file = %v, want the store failure", err)
	}
}

func TestOverlayReadDirUnion(t *testing.T) {
	a := t.TempDir()
	writeNative(t, a, "maps/one.map", "1")
	writeNative(t, a, "maps/shared.map", "a")
	b := mustArchive(t, map[string]string{
		"maps/shared.map": "b",
		"maps/two.map":    "2",
	})
	c := t.TempDir() // has no maps directory

	o := NewOverlay("resources", nil)
	o.PushBack(mustPhysical(t, a))
	o.PushBack(mustPhysical(t, c))
	o.PushBack(b)

	got, err := o.ReadDir("/maps")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/maps/one.map", "/maps/shared.map", "/maps/shared.map", "/maps/two.map"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadDir mismatch (-want +got):\n%s", diff)
	}

	if !o.Exists("/maps/two.map") {
		t.Error("Exists is not an OR across stores")
	}
	if got := readOverlay(t, o, "/maps/shared.map"); got != "a" {
		t.Errorf("shared.map = %q, want a", got)
	}
}

func TestOverlayUnmount(t *testing.T) {
	dir := t.TempDir()
	writeNative(t, dir, "a.txt", "a")

	o := NewOverlay("resources", nil)
	o.PushBack(mustPhysical(t, dir))
	o.PushBack(mustMemory(t, "mem"))
	o.PushBack(mustPhysical(t, dir, WithReadOnly()))

	if o.Unmount("/does/not/exist") {
		t.Error("Unmount of unknown root reported success")
	}
	if !o.Unmount(dir + string(filepath.Separator)) {
		t.Fatal("Unmount did not match the cleaned root")
	}
	if diff := cmp.Diff([]string{"mem"}, o.Roots()); diff != "" {
		t.Errorf("Roots after unmount (-want +got):\n%s", diff)
	}
	if o.Exists("/a.txt") {
		t.Error("unmounted store is still searched")
	}
}

func TestOverlayHandleName(t *testing.T) {
	o := NewOverlay("resources", nil)
	o.PushBack(mustArchive(t, map[string]string{"dir/file.txt": "x"}))

	f, err := o.Open("/dir/file.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	named, ok := f.(interface{ Name() string })
	if !ok || named.Name() != "/dir/file.txt" {
		t.Errorf("handle name = %v", f)
	}
}
