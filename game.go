package resourcefs

import (
	"errors"
	"os"
	"path/filepath"
)

// Names of the resource locations looked up next to the executable
const (
	ResourceDirName     = "resources"
	ResourceArchiveName = "resources.zip"
)

// DefaultGameConfig returns the standard layout for a game:
//
//   - <executable dir>/resources, read-only
//   - <executable dir>/resources.zip
//   - <user config dir>/<author>/<gameID>, read-only, last in the resource
//     chain so players can drop in extra assets
//
// The user namespace holds only the per-user directory, writable. Missing
// resource locations are skipped when the config is built.
func DefaultGameConfig(gameID, author string) (*Config, error) {
	if gameID == "" {
		return nil, errors.New("game id must not be empty")
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	exeDir := filepath.Dir(exe)

	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	userDir := filepath.Join(configDir, author, gameID)

	return &Config{
		Resources: []MountConfig{
			{Kind: KindDir, Path: filepath.Join(exeDir, ResourceDirName), ReadOnly: true, Optional: true},
			{Kind: KindZip, Path: filepath.Join(exeDir, ResourceArchiveName), Optional: true},
			{Kind: KindDir, Path: userDir, ReadOnly: true},
		},
		User: []MountConfig{
			{Kind: KindDir, Path: userDir},
		},
	}, nil
}

// NewForGame builds a Filesystem with DefaultGameConfig
func NewForGame(gameID, author string, opts ...Option) (*Filesystem, error) {
	cfg, err := DefaultGameConfig(gameID, author)
	if err != nil {
		return nil, err
	}
	return cfg.Build(opts...)
}
