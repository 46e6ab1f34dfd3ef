package main

import (
	"context"
	"fmt"

	"github.com/dukex/opsplan/pkg/models"
	cli "github.com/urfave/cli/v3"
)

func CatalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Manage the operation catalog of an organization",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List catalog operations",
				Flags: []cli.Flag{
					organizationFlag(),
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Case-insensitive name filter"},
				},
				Action: listOperations,
			},
			{
				Name:  "add",
				Usage: "Add an operation to the catalog",
				Flags: []cli.Flag{
					organizationFlag(),
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "code", Required: true},
					&cli.StringFlag{Name: "icon", Value: string(models.DefaultIcon)},
					&cli.StringFlag{Name: "description"},
					&cli.BoolFlag{Name: "final", Usage: "Mark the operation as the last of a process"},
				},
				Action: addOperation,
			},
			{
				Name:  "link",
				Usage: "Make a catalog operation usable in a project",
				Flags: []cli.Flag{
					projectFlag(),
					&cli.StringFlag{Name: "operation", Usage: "Operation id", Required: true},
				},
				Action: linkOperation,
			},
		},
	}
}

func organizationFlag() cli.Flag {
	return &cli.StringFlag{Name: "organization", Aliases: []string{"o"}, Usage: "Organization id", Required: true}
}

func projectFlag() cli.Flag {
	return &cli.StringFlag{Name: "project", Usage: "Project id", Required: true}
}

func listOperations(ctx context.Context, command *cli.Command) error {
	env, err := setup(ctx, command, "catalog")
	if err != nil {
		return err
	}
	defer env.close(ctx)

	operations, err := env.catalog().List(ctx, command.String("organization"), command.String("search"))
	if err != nil {
		return err
	}

	out := command.Root().Writer
	for _, operation := range operations {
		_, _ = fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", operation.ID, operation.Code, operation.Icon, operation.Name)
	}

	return nil
}

func addOperation(ctx context.Context, command *cli.Command) error {
	env, err := setup(ctx, command, "catalog")
	if err != nil {
		return err
	}
	defer env.close(ctx)

	created, err := env.catalog().Create(ctx, &models.Operation{
		OrganizationID: command.String("organization"),
		Name:           command.String("name"),
		Code:           command.String("code"),
		Icon:           models.Icon(command.String("icon")),
		Description:    command.String("description"),
		IsFinal:        command.Bool("final"),
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(command.Root().Writer, created.ID)

	return nil
}

func linkOperation(ctx context.Context, command *cli.Command) error {
	env, err := setup(ctx, command, "catalog")
	if err != nil {
		return err
	}
	defer env.close(ctx)

	_, err = env.catalog().AddProjectOperation(ctx, command.String("project"), command.String("operation"))

	return err
}
