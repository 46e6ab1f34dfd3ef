package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dukex/opsplan/pkg/workflowfile"
	cli "github.com/urfave/cli/v3"
)

func WorkflowCommand() *cli.Command {
	sessionFlags := func(extra ...cli.Flag) []cli.Flag {
		return append([]cli.Flag{
			projectFlag(),
			&cli.StringFlag{Name: "organization", Aliases: []string{"o"}, Usage: "Organization id of new catalog entries"},
		}, extra...)
	}

	return &cli.Command{
		Name:  "workflow",
		Usage: "Inspect, export and import project workflows",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the nodes and edges of a project workflow",
				Flags:  sessionFlags(),
				Action: showWorkflow,
			},
			{
				Name:  "export",
				Usage: "Write a project workflow as a YAML document",
				Flags: sessionFlags(
					&cli.StringFlag{Name: "output", Aliases: []string{"f"}, Usage: "Output file, stdout when empty"},
				),
				Action: exportWorkflow,
			},
			{
				Name:      "import",
				Usage:     "Add the nodes and edges of a YAML document to a project workflow",
				ArgsUsage: "<file>",
				Flags:     sessionFlags(),
				Action:    importWorkflow,
			},
		},
	}
}

func showWorkflow(ctx context.Context, command *cli.Command) error {
	env, err := setup(ctx, command, "workflow")
	if err != nil {
		return err
	}
	defer env.close(ctx)

	session, err := env.session(ctx, command)
	if err != nil {
		return err
	}
	defer session.Close()

	out := command.Root().Writer

	if session.WorkflowID() == "" {
		_, _ = fmt.Fprintf(out, "project %s has no workflow\n", command.String("project"))

		return nil
	}

	_, _ = fmt.Fprintf(out, "workflow %s\n", session.WorkflowID())

	for _, node := range session.Nodes() {
		label := string(node.Kind)
		if node.OperationID != nil {
			if operation := session.PaletteOperation(*node.OperationID); operation != nil {
				label = operation.Code
			}
		}

		_, _ = fmt.Fprintf(out, "node %s\t%s\t(%g, %g)\t%dmin\n", node.ID, label, node.Position.X, node.Position.Y, node.EstimatedTime)
	}

	for _, edge := range session.Edges() {
		_, _ = fmt.Fprintf(out, "edge %s\t%s -> %s\t%s\n", edge.ID, edge.SourceID, edge.TargetID, edge.Label)
	}

	return nil
}

func exportWorkflow(ctx context.Context, command *cli.Command) error {
	env, err := setup(ctx, command, "workflow")
	if err != nil {
		return err
	}
	defer env.close(ctx)

	session, err := env.session(ctx, command)
	if err != nil {
		return err
	}
	defer session.Close()

	doc, err := workflowfile.Export(session, command.String("project"))
	if err != nil {
		return err
	}

	data, err := workflowfile.Marshal(doc)
	if err != nil {
		return err
	}

	if output := command.String("output"); output != "" {
		return os.WriteFile(output, data, 0o600)
	}

	_, err = command.Root().Writer.Write(data)

	return err
}

func importWorkflow(ctx context.Context, command *cli.Command) error {
	if command.Args().Len() != 1 {
		return cli.Exit("expected exactly one workflow document", 1)
	}

	data, err := readDocument(command.Args().First())
	if err != nil {
		return err
	}

	doc, err := workflowfile.Parse(data)
	if err != nil {
		return err
	}

	env, err := setup(ctx, command, "workflow")
	if err != nil {
		return err
	}
	defer env.close(ctx)

	session, err := env.session(ctx, command)
	if err != nil {
		return err
	}
	defer session.Close()

	result, err := workflowfile.Apply(ctx, session, doc)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(command.Root().Writer, "imported %d nodes and %d edges into workflow %s\n",
		len(result.NodeIDs), result.Edges, session.WorkflowID())

	return nil
}

func readDocument(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}

	return os.ReadFile(path)
}
