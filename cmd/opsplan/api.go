// Package main provides the opsplan command line: the API server and the catalog,
// workflow and progress tools.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dukex/opsplan/pkg/cache"
	"github.com/dukex/opsplan/pkg/cmd"
	"github.com/dukex/opsplan/pkg/eventbus"
	"github.com/dukex/opsplan/pkg/graph"
	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence"
	"github.com/dukex/opsplan/pkg/services"
	"github.com/dukex/opsplan/pkg/web"
	"github.com/gofiber/fiber/v3"
	cli "github.com/urfave/cli/v3"
)

type API struct {
	logger   *slog.Logger
	eventBus eventbus.EventBus
	handlers *web.APIHandlers
	progress *services.Progress
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	reportCache cache.Cache,
	policy graph.Policy,
) *API {
	progress := services.NewProgress(store, reportCache, eventBus, logger)

	return &API{
		logger:   logger,
		eventBus: eventBus,
		progress: progress,
		handlers: web.NewAPIHandlers(
			services.NewCatalog(store, eventBus, logger),
			services.NewWorkflow(store, policy, eventBus, logger),
			progress,
			models.NewValidator(),
			logger,
		),
	}
}

func (a *API) App() *fiber.App {
	app := web.NewApp(a.handlers)

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("opsplan API")
	})

	return app
}

// Start subscribes to the event bus, schedules the progress refresh when refreshSchedule
// is set and serves the API until SIGINT or SIGTERM.
func (a *API) Start(ctx context.Context, port int, refreshSchedule string) error {
	if err := a.progress.RegisterHandlers(a.eventBus); err != nil {
		return fmt.Errorf("failed to register progress handlers: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	if refreshSchedule != "" {
		if err := a.progress.StartRefresh(refreshSchedule); err != nil {
			return err
		}

		defer a.progress.StopRefresh()
	}

	app := a.App()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-sigChan:
		case <-ctx.Done():
		}

		a.logger.Info("Shutting down API...")

		if err := app.Shutdown(); err != nil {
			a.logger.Error("Failed to shutdown API", "error", err)
		}
	}()

	return app.Listen(":" + strconv.Itoa(port))
}

func APICommand() *cli.Command {
	return &cli.Command{
		Name:    "api",
		Aliases: []string{"serve"},
		Usage:   "Start the REST API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (memory, kafka)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka brokers, used with --event-bus kafka",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL of the progress report cache; reports are not cached when empty",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "progress-refresh-schedule",
				Usage:   "Cron schedule recomputing cached progress reports; disabled when empty",
				Value:   "@every 10m",
				Sources: cli.EnvVars("PROGRESS_REFRESH_SCHEDULE"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			env, err := setup(ctx, command, "api")
			if err != nil {
				return err
			}
			defer env.close(ctx)

			env.logger.InfoContext(ctx, "Initializing opsplan API")

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.StringSlice("kafka-brokers"), env.logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					env.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			reportCache, err := cmd.NewCache(ctx, env.logger, command.String("redis-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := reportCache.Close(); err != nil {
					env.logger.ErrorContext(ctx, "Failed to close cache", "error", err)
				}
			}()

			api := NewAPI(env.logger, env.store, eventBus, reportCache, env.policy)

			return api.Start(ctx, command.Int("port"), command.String("progress-refresh-schedule"))
		},
	}
}
