package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/absfs/resourcefs"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

var errMissingPath = errors.New("missing path argument")

func userFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "user",
		Usage: "read from the user namespace instead of resources",
	}
}

// openFilesystem builds the filesystem described by the global flags.
// Mounts given with --mount follow those from --config.
func openFilesystem(cmd *cli.Command, logger *log.Logger) (*resourcefs.Filesystem, error) {
	root := cmd.Root()

	cfg := &resourcefs.Config{}
	if p := root.String("config"); p != "" {
		loaded, err := resourcefs.LoadConfig(p)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	for _, m := range root.StringSlice("mount") {
		kind := resourcefs.KindDir
		if strings.EqualFold(filepath.Ext(m), ".zip") {
			kind = resourcefs.KindZip
		}
		cfg.Resources = append(cfg.Resources, resourcefs.MountConfig{Kind: kind, Path: m, ReadOnly: true})
	}
	if dir := root.String("user-dir"); dir != "" {
		cfg.User = append(cfg.User, resourcefs.MountConfig{Kind: resourcefs.KindDir, Path: dir})
	}

	fsys, err := cfg.Build(resourcefs.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if root.Bool("verbose") {
		logger.SetLevel(log.DebugLevel)
	}
	return fsys, nil
}

// withFilesystem runs fn against a freshly built filesystem and releases it
// afterwards.
func withFilesystem(logger *log.Logger, fn func(*cli.Command, *resourcefs.Filesystem) error) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		fsys, err := openFilesystem(cmd, logger)
		if err != nil {
			return err
		}
		err = fn(cmd, fsys)
		if cerr := fsys.Close(); cerr != nil {
			logger.Warn("closing filesystem", "err", cerr)
		}
		return err
	}
}

func namespace(cmd *cli.Command, fsys *resourcefs.Filesystem) *resourcefs.Overlay {
	if cmd.Bool("user") {
		return fsys.User()
	}
	return fsys.Resources()
}

func pathArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() == 0 {
		return "", errMissingPath
	}
	return cmd.Args().First(), nil
}

func lsCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "list a directory across every store",
		ArgsUsage: "[path]",
		Flags:     []cli.Flag{userFlag()},
		Action: withFilesystem(logger, func(cmd *cli.Command, fsys *resourcefs.Filesystem) error {
			dir := "/"
			if cmd.Args().Len() > 0 {
				dir = cmd.Args().First()
			}
			entries, err := namespace(cmd, fsys).ReadDir(dir)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintln(cmd.Root().Writer, e)
			}
			return nil
		}),
	}
}

func catCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "print a file",
		ArgsUsage: "<path>",
		Flags:     []cli.Flag{userFlag()},
		Action: withFilesystem(logger, func(cmd *cli.Command, fsys *resourcefs.Filesystem) error {
			name, err := pathArg(cmd)
			if err != nil {
				return err
			}
			f, err := namespace(cmd, fsys).Open(name)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(cmd.Root().Writer, f)
			return err
		}),
	}
}

func statCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:      "stat",
		Usage:     "describe a file or directory",
		ArgsUsage: "<path>",
		Flags:     []cli.Flag{userFlag()},
		Action: withFilesystem(logger, func(cmd *cli.Command, fsys *resourcefs.Filesystem) error {
			name, err := pathArg(cmd)
			if err != nil {
				return err
			}
			m, err := namespace(cmd, fsys).Metadata(name)
			if err != nil {
				return err
			}
			kind := "file"
			if m.IsDir() {
				kind = "dir"
			}
			modified := "-"
			if !m.ModTime.IsZero() {
				modified = m.ModTime.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(cmd.Root().Writer, "%s\t%s\t%d\t%s\n", name, kind, m.Len(), modified)
			return nil
		}),
	}
}

func putCommand(logger *log.Logger, stdin io.Reader) *cli.Command {
	return &cli.Command{
		Name:      "put",
		Usage:     "write standard input to a user file",
		ArgsUsage: "<path>",
		Action: withFilesystem(logger, func(cmd *cli.Command, fsys *resourcefs.Filesystem) error {
			name, err := pathArg(cmd)
			if err != nil {
				return err
			}
			w, err := fsys.UserCreate(name)
			if err != nil {
				return err
			}
			_, err = io.Copy(w, stdin)
			if cerr := w.Close(); err == nil {
				err = cerr
			}
			return err
		}),
	}
}

func mkdirCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:      "mkdir",
		Usage:     "create a user directory and its parents",
		ArgsUsage: "<path>",
		Action: withFilesystem(logger, func(cmd *cli.Command, fsys *resourcefs.Filesystem) error {
			name, err := pathArg(cmd)
			if err != nil {
				return err
			}
			return fsys.UserCreateDir(name)
		}),
	}
}

func rmCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "delete a user file or directory",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "recursive",
				Aliases: []string{"r"},
				Usage:   "delete directories and their contents",
			},
		},
		Action: withFilesystem(logger, func(cmd *cli.Command, fsys *resourcefs.Filesystem) error {
			name, err := pathArg(cmd)
			if err != nil {
				return err
			}
			if cmd.Bool("recursive") {
				return fsys.UserDeleteAll(name)
			}
			return fsys.UserDelete(name)
		}),
	}
}

func mountsCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "mounts",
		Usage: "show the stores of both namespaces in search order",
		Action: withFilesystem(logger, func(cmd *cli.Command, fsys *resourcefs.Filesystem) error {
			out := cmd.Root().Writer
			for _, o := range []*resourcefs.Overlay{fsys.Resources(), fsys.User()} {
				for i, root := range o.Roots() {
					fmt.Fprintf(out, "%s\t%d\t%s\n", o.Name(), i, root)
				}
			}
			return nil
		}),
	}
}
