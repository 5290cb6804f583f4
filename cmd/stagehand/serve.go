package main

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/stagehand-io/stagehand/pkg/cmd"
	"github.com/stagehand-io/stagehand/pkg/eventbus"
	"github.com/stagehand-io/stagehand/pkg/log"
	"github.com/stagehand-io/stagehand/pkg/otelhelper"
	"github.com/stagehand-io/stagehand/pkg/web"
	"github.com/stagehand-io/stagehand/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 8081

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the supervision API and the event relay",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the supervision API on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL (postgres://..., redis://... or a file path)",
				Value:   "./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-channel",
				Usage:   "External event channel (kafka, memory)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_CHANNEL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export spans to the OTLP endpoint configured via OTEL_EXPORTER_OTLP_* env vars",
				Value:   false,
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("stagehand-serve")

			logger.InfoContext(ctx, "Initializing supervision API")

			if command.Bool("tracing") {
				if _, err := otelhelper.NewTracer(ctx, "stagehand"); err != nil {
					return err
				}
			}

			persist, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persist.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			bus := eventbus.NewInProcessBus()
			defer func() {
				if err := bus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			reg, err := cmd.NewRegistry(ctx, logger, persist, nil)
			if err != nil {
				return err
			}

			executor := workflow.NewExecutor(reg, bus, persist, logger)

			if err := reg.InitializeAll(ctx, nil, bus); err != nil {
				return err
			}
			defer reg.CleanupAll(ctx)

			if err := startRelay(ctx, bus, command.String("event-channel"), logger); err != nil {
				return err
			}

			app := fiber.New(fiber.Config{AppName: "stagehand"})

			handlers := web.NewAPIHandlers(executor, reg, persist, bus, logger)
			handlers.RegisterRoutes(app)

			return app.Listen(fmt.Sprintf(":%d", command.Int("port")))
		},
	}
}
