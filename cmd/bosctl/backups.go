package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/bosmethod/bos/pkg/models"
)

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:    "backup",
		Aliases: []string{"b"},
		Usage:   "Manage dataset backups",
		Commands: []*cli.Command{
			backupListCommand(),
			backupCreateCommand(),
			backupRestoreCommand(),
			backupDeleteCommand(),
			backupClearCommand(),
		},
	}
}

func backupListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List backups, most recent first",
		Action: func(ctx context.Context, command *cli.Command) error {
			_, backups, closer, err := newManagers(command)
			if err != nil {
				return err
			}
			defer closer()

			all := backups.GetAllBackups(ctx)
			if len(all) == 0 {
				fmt.Println("no backups stored")

				return nil
			}

			for _, b := range all {
				fmt.Printf("%s\t%s\n", b.ID, backups.FormatBackupInfo(b))
			}

			return nil
		},
	}
}

func backupCreateCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Snapshot the stored dataset",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "label",
				Usage: "Human-readable backup label",
				Value: "Manual backup",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			manager, backups, closer, err := newManagers(command)
			if err != nil {
				return err
			}
			defer closer()

			flows, err := manager.LoadData(ctx)
			if err != nil {
				return err
			}

			result := backups.CreateBackup(ctx, flows, models.BackupOperationManual, command.String("label"))
			if !result.Success {
				return errors.New(result.Error)
			}

			fmt.Println("created", result.BackupID)

			return nil
		},
	}
}

func backupRestoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Replace the stored dataset with a backup snapshot",
		ArgsUsage: "<backup-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			id := command.Args().First()
			if id == "" {
				return errors.New("usage: bosctl backup restore <backup-id>")
			}

			manager, backups, closer, err := newManagers(command)
			if err != nil {
				return err
			}
			defer closer()

			current, err := manager.LoadData(ctx)
			if err != nil {
				return err
			}

			if len(current) > 0 {
				pre := backups.CreateBackup(ctx, current, models.BackupOperationPreRecovery, "Automatic backup before restore")
				if pre.Success {
					fmt.Fprintf(os.Stderr, "pre-restore snapshot: %s\n", pre.BackupID)
				} else {
					fmt.Fprintf(os.Stderr, "warning: pre-restore snapshot failed: %s\n", pre.Error)
				}
			}

			result := backups.RestoreFromBackup(ctx, id)
			if !result.Success {
				return errors.New(result.Error)
			}

			if !manager.SaveData(ctx, result.Data) {
				return errors.New("failed to persist restored dataset")
			}

			fmt.Printf("restored %d flow(s) from %s\n", len(result.Data), id)

			return nil
		},
	}
}

func backupDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete one backup",
		ArgsUsage: "<backup-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			id := command.Args().First()
			if id == "" {
				return errors.New("usage: bosctl backup delete <backup-id>")
			}

			_, backups, closer, err := newManagers(command)
			if err != nil {
				return err
			}
			defer closer()

			result := backups.DeleteBackup(ctx, id)
			if !result.Success {
				return errors.New(result.Error)
			}

			fmt.Println("deleted", id)

			return nil
		},
	}
}

func backupClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete every backup",
		Action: func(ctx context.Context, command *cli.Command) error {
			_, backups, closer, err := newManagers(command)
			if err != nil {
				return err
			}
			defer closer()

			result := backups.ClearAllBackups(ctx)
			if !result.Success {
				return errors.New(result.Error)
			}

			fmt.Println("cleared all backups")

			return nil
		},
	}
}
