// Command resourcefs inspects and edits the resource and user namespaces of
// a game filesystem from the command line.
package main

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	logger := log.NewWithOptions(stderr, log.Options{Prefix: "resourcefs"})
	logger.SetLevel(log.WarnLevel)

	app := &cli.Command{
		Name:      "resourcefs",
		Usage:     "browse and edit layered game resources and user data",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      "config",
				Aliases:   []string{"c"},
				Usage:     "TOML or YAML file describing the mounts",
				TakesFile: true,
			},
			&cli.StringSliceFlag{
				Name:      "mount",
				Aliases:   []string{"m"},
				Usage:     "directory or .zip archive appended read-only to the resource namespace",
				TakesFile: true,
			},
			&cli.StringFlag{
				Name:      "user-dir",
				Aliases:   []string{"u"},
				Usage:     "writable directory appended to the user namespace",
				TakesFile: true,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log every store consulted",
			},
		},
		Commands: []*cli.Command{
			lsCommand(logger),
			catCommand(logger),
			statCommand(logger),
			putCommand(logger, stdin),
			mkdirCommand(logger),
			rmCommand(logger),
			mountsCommand(logger),
		},
	}
	// Leave exit handling to run so tests never hit os.Exit.
	app.ExitErrHandler = func(_ context.Context, _ *cli.Command, _ error) {}

	if err := app.Run(context.Background(), args); err != nil {
		logger.Error(err.Error())
		return 1
	}
	return 0
}
