package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/bosmethod/bos/pkg/migration"
)

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a dataset file, replacing the stored dataset",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "accept-recovered",
				Usage: "Persist a partially recovered dataset instead of rejecting it",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return errors.New("usage: bosctl import <file>")
			}

			body, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			manager, _, closer, err := newManagers(command)
			if err != nil {
				return err
			}
			defer closer()

			current, err := manager.LoadData(ctx)
			if err != nil {
				return err
			}

			result := manager.ImportData(ctx, string(body), current)

			for _, warning := range result.Warnings {
				fmt.Fprintln(os.Stderr, "warning:", warning)
			}

			if result.BackupID != "" {
				fmt.Fprintln(os.Stderr, "pre-import backup:", result.BackupID)
			}

			flows := result.Data

			if !result.Success {
				if len(result.RecoveredData) == 0 || !command.Bool("accept-recovered") {
					return errors.New(result.Error)
				}

				fmt.Fprintln(os.Stderr, "accepting recovered dataset:", result.Error)

				flows = result.RecoveredData
			}

			if !manager.SaveData(ctx, flows) {
				return errors.New("failed to persist imported dataset")
			}

			fmt.Printf("imported %d flow(s)\n", len(flows))

			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export the stored dataset as pretty-printed JSON",
		ArgsUsage: "[file]",
		Action: func(ctx context.Context, command *cli.Command) error {
			manager, _, closer, err := newManagers(command)
			if err != nil {
				return err
			}
			defer closer()

			flows, err := manager.LoadData(ctx)
			if err != nil {
				return err
			}

			body, err := manager.ExportData(flows)
			if err != nil {
				return err
			}

			if path := command.Args().First(); path != "" {
				return os.WriteFile(path, []byte(body), 0o600)
			}

			fmt.Println(body)

			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate a dataset file without importing it",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return errors.New("usage: bosctl validate <file>")
			}

			body, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			var raw any
			if err := json.Unmarshal(body, &raw); err != nil {
				return fmt.Errorf("invalid JSON: %w", err)
			}

			result := migration.MigrateDataWithValidation(raw)

			for _, warning := range result.Warnings {
				fmt.Fprintln(os.Stderr, "warning:", warning)
			}

			if !result.Valid {
				if len(result.RecoveredData) > 0 {
					fmt.Fprintf(os.Stderr, "recoverable: %d flow(s) salvageable\n", len(result.RecoveredData))
				}

				return errors.New(strings.Join(result.Errors, "; "))
			}

			fmt.Printf("valid: %d flow(s), %d warning(s)\n", len(result.Data), len(result.Warnings))

			return nil
		},
	}
}
