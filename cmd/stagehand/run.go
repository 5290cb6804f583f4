package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/stagehand-io/stagehand/pkg/cmd"
	"github.com/stagehand-io/stagehand/pkg/eventbus"
	"github.com/stagehand-io/stagehand/pkg/events"
	"github.com/stagehand-io/stagehand/pkg/log"
	"github.com/stagehand-io/stagehand/pkg/models"
	"github.com/stagehand-io/stagehand/pkg/otelhelper"
	"github.com/stagehand-io/stagehand/pkg/persistence"
	"github.com/stagehand-io/stagehand/pkg/registry"
	"github.com/stagehand-io/stagehand/pkg/web"
	"github.com/stagehand-io/stagehand/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

// Event types mirrored onto the external channel for out-of-process observers.
var relayedEvents = []events.EventType{
	events.RunStartedEvent,
	events.RunCompletedEvent,
	events.RunFailedEvent,
	events.RunCancelledEvent,
	events.StepStartedEvent,
	events.StepFinishedEvent,
	events.StepFailedEvent,
	events.StepSkippedEvent,
	events.WaitingForInputEvent,
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute a workflow definition file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "workflow",
				Aliases:  []string{"w"},
				Usage:    "Path to the workflow definition file (JSON or YAML)",
				Required: true,
				Sources:  cli.EnvVars("WORKFLOW_FILE"),
			},
			&cli.StringFlag{
				Name:    "run-id",
				Usage:   "Run ID; reusing one resumes from the persisted state of the previous attempt (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("RUN_ID"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL (postgres://..., redis://... or a file path)",
				Value:   "./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "initial",
				Usage:   "Initial state bag as a JSON object",
				Value:   "",
				Sources: cli.EnvVars("INITIAL_STATE"),
			},
			&cli.StringFlag{
				Name:    "event-channel",
				Usage:   "External event channel (kafka, memory); empty disables the relay",
				Value:   "",
				Sources: cli.EnvVars("EVENT_CHANNEL"),
			},
			&cli.IntFlag{
				Name:    "api-port",
				Usage:   "Port for the supervision API while the run is in flight (0 disables it)",
				Value:   0,
				Sources: cli.EnvVars("API_PORT"),
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
			logger := log.WithModule("stagehand")

			if command.Bool("tracing") {
				if _, err := otelhelper.NewTracer(ctx, "stagehand"); err != nil {
					return err
				}
			}

			wf, err := workflow.LoadWorkflowFile(command.String("workflow"))
			if err != nil {
				return err
			}

			plan, err := workflow.BuildPlan(wf)
			if err != nil {
				return err
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

			if provider := command.String("event-channel"); provider != "" {
				if err := startRelay(ctx, bus, provider, logger); err != nil {
					return err
				}
			}

			if port := command.Int("api-port"); port > 0 {
				app := startSupervisorAPI(ctx, executor, reg, persist, bus, logger, port)
				defer func() {
					if err := app.Shutdown(); err != nil {
						logger.ErrorContext(ctx, "Failed to shut down supervision API", "error", err)
					}
				}()
			}

			runID := command.String("run-id")

			initial, err := initialState(ctx, persist, runID, command.String("initial"))
			if err != nil {
				return err
			}

			result, err := executor.Execute(ctx, plan, runID, initial)
			if err != nil {
				return err
			}

			output, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, string(output))

			if result.Status == models.RunStatusFailed {
				return fmt.Errorf("run %s failed at step %q: %s", result.RunID, result.FailedStep, result.ErrorMessage)
			}

			return nil
		},
	}
}

// initialState seeds the bag from the persisted snapshot of a previous
// attempt with the same run id, then overlays the values given on the
// command line.
func initialState(ctx context.Context, persist persistence.Persistence, runID, initialJSON string) (map[string]any, error) {
	bag := make(map[string]any)

	if runID != "" && persist != nil {
		snapshot, err := persist.RunRepository().RunByID(ctx, runID)

		switch {
		case err == nil:
			maps.Copy(bag, snapshot.State)
		case !persistence.IsRunNotFound(err):
			return nil, err
		}
	}

	if initialJSON != "" {
		var overlay map[string]any
		if err := json.Unmarshal([]byte(initialJSON), &overlay); err != nil {
			return nil, fmt.Errorf("invalid initial state: %w", err)
		}

		maps.Copy(bag, overlay)
	}

	return bag, nil
}

func startRelay(ctx context.Context, bus eventbus.Bus, provider string, logger *slog.Logger) error {
	publisher, subscriber, err := cmd.NewEventChannel(provider, logger)
	if err != nil {
		return err
	}

	relay := eventbus.NewRelay(bus, publisher, subscriber, logger)
	relay.Forward(relayedEvents...)

	go func() {
		if err := relay.Run(ctx); err != nil {
			logger.ErrorContext(ctx, "Event relay stopped", "error", err)
		}
	}()

	return nil
}

func startSupervisorAPI(
	ctx context.Context,
	executor *workflow.Executor,
	reg *registry.Registry,
	persist persistence.Persistence,
	bus eventbus.Bus,
	logger *slog.Logger,
	port int,
) *fiber.App {
	app := fiber.New(fiber.Config{AppName: "stagehand"})

	handlers := web.NewAPIHandlers(executor, reg, persist, bus, logger)
	handlers.RegisterRoutes(app)

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", port)); err != nil {
			logger.ErrorContext(ctx, "Supervision API stopped", "error", err)
		}
	}()

	return app
}
