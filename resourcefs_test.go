package resourcefs

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
)

// newGameFS mounts two resource layers and one writable user store
func newGameFS(t *testing.T) (*Filesystem, string, string) {
	t.Helper()
	patch := t.TempDir()
	base := t.TempDir()
	user := t.TempDir()
	writeNative(t, patch, "textures/wall.png", "patched wall")
	writeNative(t, base, "textures/wall.png", "wall")
	writeNative(t, base, "textures/floor.png", "floor")
	writeNative(t, base, "sounds/step.wav", "step")

	fsys := New(
		WithResourceStore(mustPhysical(t, patch, WithReadOnly())),
		WithResourceStore(mustPhysical(t, base, WithReadOnly())),
		WithUserStore(mustPhysical(t, user)),
	)
	t.Cleanup(func() { fsys.Close() })
	return fsys, base, user
}

func TestFilesystemResourceReads(t *testing.T) {
	fsys, _, _ := newGameFS(t)

	data, err := fsys.ReadFile("/textures/wall.png")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "patched wall" {
		t.Errorf("wall.png = %q", data)
	}

	if !fsys.Exists("/sounds/step.wav") || !fsys.IsFile("/sounds/step.wav") {
		t.Error("step.wav should be a file")
	}
	if !fsys.IsDir("/textures") || fsys.IsFile("/textures") {
		t.Error("textures should be a directory")
	}
	if fsys.IsFile("/missing") || fsys.IsDir("/missing") || fsys.IsFile("/../x") {
		t.Error("lookup errors should count as false")
	}

	entries, err := fsys.ReadDir("/textures")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/textures/wall.png", "/textures/floor.png", "/textures/wall.png"}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("ReadDir mismatch (-want +got):\n%s", diff)
	}

	m, err := fsys.Metadata("/textures/floor.png")
	if err != nil || m.Len() != 5 {
		t.Errorf("Metadata = %+v, %v", m, err)
	}
}

func TestFilesystemResourcesAreNotWritten(t *testing.T) {
	fsys, _, user := newGameFS(t)

	// Write options on the resource entry point are served by the user
	// namespace.
	f, err := fsys.OpenOptions("/notes.txt", OpenOptions{Write: true, Create: true, Truncate: true})
	if err != nil {
		t.Fatal(err)
	}
	f.Write([]byte("note"))
	f.Close()

	if fsys.Exists("/notes.txt") {
		t.Error("write landed in the resource namespace")
	}
	if got := readStore(t, mustPhysical(t, user), "/notes.txt"); got != "note" {
		t.Errorf("user store has %q", got)
	}
}

func TestFilesystemUserNamespace(t *testing.T) {
	fsys, _, _ := newGameFS(t)

	if err := fsys.UserCreateDir("/saves/slot1"); err != nil {
		t.Fatal(err)
	}
	if err := fsys.UserWriteFile("/saves/slot1/state.sav", []byte("level=1")); err != nil {
		t.Fatal(err)
	}

	a, err := fsys.UserAppend("/saves/slot1/state.sav")
	if err != nil {
		t.Fatal(err)
	}
	a.Write([]byte(";hp=9"))
	a.Close()

	data, err := fsys.UserReadFile("/saves/slot1/state.sav")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "level=1;hp=9" {
		t.Errorf("state.sav = %q", data)
	}

	if !fsys.UserExists("/saves/slot1") {
		t.Error("UserExists = false")
	}
	m, err := fsys.UserMetadata("/saves/slot1")
	if err != nil || !m.IsDir() {
		t.Errorf("UserMetadata = %+v, %v", m, err)
	}
	names, err := fsys.UserReadDir("/saves")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"/saves/slot1"}, names); diff != "" {
		t.Errorf("UserReadDir mismatch (-want +got):\n%s", diff)
	}

	if err := fsys.UserDelete("/saves/slot1/state.sav"); err != nil {
		t.Fatal(err)
	}
	if err := fsys.UserDeleteAll("/saves"); err != nil {
		t.Fatal(err)
	}
	if fsys.UserExists("/saves") {
		t.Error("saves survived UserDeleteAll")
	}
	if _, err := fsys.UserOpen("/saves/slot1/state.sav"); !IsNotFound(err) {
		t.Errorf("UserOpen after delete = %v", err)
	}

	// Resources are invisible from the user namespace.
	if fsys.UserExists("/textures/wall.png") {
		t.Error("user namespace sees resources")
	}
}

func TestFindResource(t *testing.T) {
	fsys, _, _ := newGameFS(t)

	f, err := fsys.FindResource([]string{"/models", "/textures", "/"}, "floor.png")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(f)
	f.Close()
	if string(data) != "floor" {
		t.Errorf("found %q", data)
	}

	f, err = fsys.FindResource([]string{"/", "/textures/"}, "/sounds/step.wav")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, err = fsys.FindResource([]string{"/models", "/fonts"}, "floor.png")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
	tried := make([]string, len(nf.Attempts))
	for i, a := range nf.Attempts {
		tried[i] = a.Store
	}
	if diff := cmp.Diff([]string{"/models/floor.png", "/fonts/floor.png"}, tried); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}

	if _, err := fsys.FindResource([]string{"/textures"}, "../secret"); !IsInvalidPath(err) {
		t.Errorf("traversal suffix error = %v", err)
	}
}

func TestJoinVirtual(t *testing.T) {
	tests := []struct{ prefix, suffix, want string }{
		{"/", "a.png", "/a.png"},
		{"/", "", "/"},
		{"", "a.png", "/a.png"},
		{"/textures", "a.png", "/textures/a.png"},
		{"/textures/", "/a.png", "/textures/a.png"},
		{"/textures", "", "/textures"},
		{"/textures", "../a.png", "/textures/../a.png"},
	}
	for _, tt := range tests {
		if got := joinVirtual(tt.prefix, tt.suffix); got != tt.want {
			t.Errorf("joinVirtual(%q, %q) = %q, want %q", tt.prefix, tt.suffix, got, tt.want)
		}
	}
}

func TestFilesystemMountUnmount(t *testing.T) {
	fsys := New()
	dir := t.TempDir()
	writeNative(t, dir, "a.txt", "a")

	if err := fsys.Mount(dir, true); err != nil {
		t.Fatal(err)
	}
	mem := mustMemory(t, "scratch")
	fsys.MountUserStore(mem)

	if !fsys.Exists("/a.txt") {
		t.Error("mounted directory not visible")
	}
	if err := fsys.UserWriteFile("/x", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if !fsys.UnmountResourceStore(dir) || fsys.Exists("/a.txt") {
		t.Error("UnmountResourceStore did not remove the directory")
	}
	if !fsys.UnmountUserStore("scratch") || fsys.User().Len() != 0 {
		t.Error("UnmountUserStore did not remove the memory store")
	}
	if fsys.UnmountUserStore("scratch") {
		t.Error("second unmount reported success")
	}
}

func TestFilesystemReadOnlyMount(t *testing.T) {
	fsys := New()
	if err := fsys.Mount(t.TempDir(), true); err != nil {
		t.Fatal(err)
	}
	fsys.MountUserStore(fsys.Resources().Stores()[0])

	if err := fsys.UserCreateDir("/saves"); !IsReadOnly(err) {
		t.Errorf("UserCreateDir on read-only store = %v", err)
	}
}

func TestFilesystemClose(t *testing.T) {
	fsys := New(
		WithResourceStore(mustArchive(t, map[string]string{"a": "a"})),
		WithUserStore(mustMemory(t, "m")),
	)
	if err := fsys.Close(); err != nil {
		t.Fatal(err)
	}
	if fsys.Resources().Len() != 0 || fsys.User().Len() != 0 {
		t.Error("Close left stores mounted")
	}
}

func TestLogAll(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	logger.SetLevel(log.DebugLevel)

	fsys := New(
		WithLogger(logger),
		WithResourceStore(mustArchive(t, map[string]string{"maps/one.map": "1"})),
	)
	fsys.LogAll()

	out := buf.String()
	for _, want := range []string{"zip:test.zip", "/maps", "/maps/one.map"} {
		if !strings.Contains(out, want) {
			t.Errorf("LogAll output missing %q:\n%s", want, out)
		}
	}
}
