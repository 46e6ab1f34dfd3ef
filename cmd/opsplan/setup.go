package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/opsplan/pkg/cmd"
	"github.com/dukex/opsplan/pkg/editor"
	"github.com/dukex/opsplan/pkg/graph"
	"github.com/dukex/opsplan/pkg/log"
	"github.com/dukex/opsplan/pkg/otelhelper"
	"github.com/dukex/opsplan/pkg/persistence/sqldb"
	"github.com/dukex/opsplan/pkg/services"
	cli "github.com/urfave/cli/v3"
)

// environment holds what every subcommand opens from the root flags.
type environment struct {
	logger *slog.Logger
	store  *sqldb.Persistence
	policy graph.Policy

	shutdownTracer func(context.Context) error
}

func setup(ctx context.Context, command *cli.Command, module string) (*environment, error) {
	log.Setup(command.String("log-level"), command.String("log-format"))

	env := &environment{
		logger: log.WithModule(module),
		policy: graph.Policy{AllowSelfLoops: command.Bool("allow-self-loops")},
	}

	if command.Bool("otel-enabled") {
		shutdown, err := otelhelper.Setup(ctx, "opsplan-"+module)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		env.shutdownTracer = shutdown
	}

	store, err := cmd.NewPersistence(ctx, env.logger, command.String("database-url"))
	if err != nil {
		env.close(ctx)

		return nil, err
	}

	env.store = store

	return env, nil
}

func (e *environment) close(ctx context.Context) {
	if e.store != nil {
		if err := e.store.Close(ctx); err != nil {
			e.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}

	if e.shutdownTracer != nil {
		if err := e.shutdownTracer(ctx); err != nil {
			e.logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
		}
	}
}

func (e *environment) catalog() *services.Catalog {
	return services.NewCatalog(e.store, nil, e.logger)
}

func (e *environment) workflow() *services.Workflow {
	return services.NewWorkflow(e.store, e.policy, nil, e.logger)
}

// session opens and loads an editing session of the project named by the command flags.
func (e *environment) session(ctx context.Context, command *cli.Command) (*editor.Session, error) {
	retries := command.Int("persistence-retries")
	if retries < 0 {
		retries = 0
	}

	session, err := editor.NewSession(services.NewBackend(e.catalog(), e.workflow()), editor.Config{
		OrganizationID: command.String("organization"),
		ProjectID:      command.String("project"),
		Policy:         e.policy,
		Timeout:        command.Duration("persistence-timeout"),
		MaxRetries:     uint64(retries),
	})
	if err != nil {
		return nil, err
	}

	if err := session.Load(ctx); err != nil {
		session.Close()

		return nil, err
	}

	return session, nil
}
