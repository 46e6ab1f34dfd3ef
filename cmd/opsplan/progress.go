package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukex/opsplan/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func ProgressCommand() *cli.Command {
	return &cli.Command{
		Name:  "progress",
		Usage: "Report and record production progress",
		Commands: []*cli.Command{
			{
				Name:  "report",
				Usage: "Print the progress report of a command project as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "command-project", Usage: "Command project id", Required: true},
					&cli.TimestampFlag{
						Name:   "from",
						Usage:  "Window start (YYYY-MM-DD)",
						Config: cli.TimestampConfig{Layouts: []string{time.DateOnly, time.RFC3339}},
					},
					&cli.TimestampFlag{
						Name:   "to",
						Usage:  "Window end (YYYY-MM-DD), exclusive",
						Config: cli.TimestampConfig{Layouts: []string{time.DateOnly, time.RFC3339}},
					},
				},
				Action: reportProgress,
			},
			{
				Name:  "record",
				Usage: "Record completed units of a planning",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "planning", Usage: "Planning id", Required: true},
					&cli.IntFlag{Name: "count", Required: true},
				},
				Action: recordHistory,
			},
		},
	}
}

func reportProgress(ctx context.Context, command *cli.Command) error {
	env, err := setup(ctx, command, "progress")
	if err != nil {
		return err
	}
	defer env.close(ctx)

	progress := services.NewProgress(env.store, nil, nil, env.logger)

	report, err := progress.Report(ctx, command.String("command-project"), command.Timestamp("from"), command.Timestamp("to"))
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(command.Root().Writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(report)
}

func recordHistory(ctx context.Context, command *cli.Command) error {
	env, err := setup(ctx, command, "progress")
	if err != nil {
		return err
	}
	defer env.close(ctx)

	progress := services.NewProgress(env.store, nil, nil, env.logger)

	history, err := progress.RecordHistory(ctx, command.String("planning"), command.Int("count"))
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(command.Root().Writer, history.ID)

	return nil
}
