/*
Package resourcefs provides the virtual filesystem a game uses for its shipped
assets and its per-user data.

# Overview

A Filesystem holds two namespaces. The resource namespace is an ordered chain
of stores searched for game content; the user namespace holds settings, saves
and anything else the game writes. Each namespace is an Overlay: the first
store mounted has the highest precedence, reads return the first hit, writes
go to the first store that accepts them and directory listings are the union
of every store that can list the directory.

# Virtual Paths

Every path is absolute and slash-separated: "/textures/wall.png". Empty
components, ".", "..", trailing slashes, backslashes and NUL bytes are
rejected with ErrInvalidPath before any store is consulted, so no path can
reach outside a store's root. Sanitize exposes the same check.

# Stores

  - PhysicalStore serves a directory on the host
  - ArchiveStore serves a zip archive, always read-only
  - FilerStore adapts any absfs.FileSystem; NewMemoryStore backs one with memfs

Stores accept WithReadOnly and WithCaseInsensitiveFallback. The fallback
retries a failed lookup by matching each path component case-insensitively,
which lets assets authored on case-insensitive systems load elsewhere.

# Basic Usage

	fsys, err := resourcefs.NewForGame("space-game", "acme")
	if err != nil {
	    log.Fatal(err)
	}
	defer fsys.Close()

	// Shipped content: <exe>/resources, <exe>/resources.zip, then the user dir
	logo, err := fsys.ReadFile("/ui/logo.png")

	// Per-user data
	err = fsys.UserWriteFile("/settings.ini", []byte("volume=3"))

# Errors

Lookups that fail in every store return a *NotFoundError listing each
store's reason. It matches ErrNotFound (and fs.ErrNotExist) with errors.Is.
Mutations that fail everywhere return a single error: an *fs.PathError
wrapping ErrReadOnly when every store was read-only, ErrNotFound when every
writable store lacked the path, and otherwise the first store failure. Store
failures are *IOError values carrying the virtual path and the store's Root;
for a PhysicalStore that is the absolute host directory, but the native path
of the entry itself is never included.

# Configuration

Mounts can be described in TOML or YAML and loaded with LoadConfig:

	log_level = "info"

	[[resources]]
	kind = "zip"
	path = "$GAME_HOME/resources.zip"

	[[user]]
	kind = "dir"
	path = "$HOME/.config/acme/space-game"

# Concurrency

Handles are independent and may be used from different goroutines. The
mount list is not locked: mount and unmount stores before lookups start.
*/
package resourcefs
