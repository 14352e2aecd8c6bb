package resourcefs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Mount kinds understood by MountConfig
const (
	KindDir    = "dir"
	KindZip    = "zip"
	KindMemory = "memory"
)

// Config describes the mounts of a Filesystem. It can be written by hand or
// loaded from a TOML or YAML file with LoadConfig.
type Config struct {
	// LogLevel, if set, is applied to the logger passed to Build.
	LogLevel  string        `toml:"log_level" yaml:"log_level"`
	Resources []MountConfig `toml:"resources" yaml:"resources"`
	User      []MountConfig `toml:"user"      yaml:"user"`

	// LoadPath is the file the config was read from, if any.
	LoadPath string `toml:"-" yaml:"-"`
}

// MountConfig describes one store
type MountConfig struct {
	Kind            string `toml:"kind"             yaml:"kind"`
	Path            string `toml:"path"             yaml:"path"`
	ReadOnly        bool   `toml:"readonly"         yaml:"readonly"`
	CaseInsensitive bool   `toml:"case_insensitive" yaml:"case_insensitive"`
	// Optional mounts are skipped when their path does not exist.
	Optional bool `toml:"optional" yaml:"optional"`
}

// LoadConfig reads a config file. Files ending in .toml are parsed as TOML,
// .yaml and .yml as YAML. Unknown keys are an error in both formats.
func LoadConfig(configPath string) (*Config, error) {
	var (
		cfg Config
		err error
	)
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		err = loadTOML(configPath, &cfg)
	case ".yaml", ".yml":
		err = loadYAML(configPath, &cfg)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", configPath, err)
	}
	cfg.LoadPath = configPath
	return &cfg, nil
}

func loadTOML(configPath string, cfg *Config) error {
	md, err := toml.DecodeFile(configPath, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return fmt.Errorf("unknown keys in config file: %s", strings.Join(keys, ", "))
	}
	return nil
}

func loadYAML(configPath string, cfg *Config) error {
	f, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Build creates a Filesystem and mounts every configured store in order.
// Stores opened before a failing mount are released before returning.
func (c *Config) Build(opts ...Option) (*Filesystem, error) {
	f := New(opts...)
	if c.LogLevel != "" {
		level, err := log.ParseLevel(c.LogLevel)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
		}
		f.logger.SetLevel(level)
	}

	mountAll := func(o *Overlay, mounts []MountConfig) error {
		for _, m := range mounts {
			s, err := m.Open()
			if err != nil {
				if m.Optional && errors.Is(err, fs.ErrNotExist) {
					f.logger.Debug("skipping optional mount", "overlay", o.name, "path", m.Path)
					continue
				}
				return err
			}
			o.PushBack(s)
		}
		return nil
	}
	if err := mountAll(f.resources, c.Resources); err != nil {
		f.Close()
		return nil, err
	}
	if err := mountAll(f.user, c.User); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Open creates the store described by m
func (m MountConfig) Open() (Store, error) {
	var opts []StoreOption
	if m.ReadOnly {
		opts = append(opts, WithReadOnly())
	}
	if m.CaseInsensitive {
		opts = append(opts, WithCaseInsensitiveFallback())
	}
	p := os.ExpandEnv(m.Path)

	switch m.Kind {
	case "", KindDir:
		if p == "" {
			return nil, errors.New("dir mount needs a path")
		}
		if m.Optional {
			if _, err := os.Stat(p); err != nil {
				return nil, err
			}
		}
		return NewPhysicalStore(p, opts...)
	case KindZip:
		return OpenArchiveStore(p, opts...)
	case KindMemory:
		if p == "" {
			p = "memory"
		}
		return NewMemoryStore(p, opts...)
	default:
		return nil, fmt.Errorf("unknown mount kind %q", m.Kind)
	}
}
