// Package main provides bosctl, the command line client for BOS datasets.
package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/bosmethod/bos/pkg/backup"
	"github.com/bosmethod/bos/pkg/cmd"
	"github.com/bosmethod/bos/pkg/log"
	"github.com/bosmethod/bos/pkg/persistence"
)

func main() {
	command := &cli.Command{
		Name:                  "bosctl",
		Usage:                 "Inspect, import, export and back up BOS datasets",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "storage-url",
				Usage:   "Storage URL (file://<dir>, redis://<host> or postgres://<host>/<db>)",
				Value:   "file://./data",
				Sources: cli.EnvVars("STORAGE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			flowsCommand(),
			importCommand(),
			exportCommand(),
			validateCommand(),
			backupCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "bosctl:", err)
		os.Exit(1)
	}
}

// newManagers builds the storage-backed managers shared by every
// subcommand. The returned closer releases the storage connection.
func newManagers(command *cli.Command) (*persistence.Manager, *backup.Manager, func(), error) {
	log.Setup(command.String("log-level"))

	store, err := cmd.NewStore(context.Background(), command.String("storage-url"))
	if err != nil {
		return nil, nil, nil, err
	}

	backups := backup.NewManager(store, nil, backup.Config{})
	manager := persistence.NewManager(store, backups, nil, persistence.Config{Source: "bosctl"})

	closer := func() {
		_ = store.Close(context.Background())
	}

	return manager, backups, closer, nil
}
