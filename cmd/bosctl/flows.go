package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"
)

func flowsCommand() *cli.Command {
	return &cli.Command{
		Name:    "flows",
		Aliases: []string{"f"},
		Usage:   "Inspect stored flows",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List flows in the stored dataset",
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

					if len(flows) == 0 {
						fmt.Println("no flows stored")

						return nil
					}

					for _, flow := range flows {
						steps := 0
						for _, stage := range flow.Stages {
							steps += len(stage.Steps)
						}

						fmt.Printf("%s\t%s\t%d stage(s), %d step(s)\n", flow.ID, flow.Name, len(flow.Stages), steps)
					}

					return nil
				},
			},
		},
	}
}
