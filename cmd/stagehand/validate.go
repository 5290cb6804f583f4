package main

import (
	"context"
	"fmt"
	"os"

	"github.com/stagehand-io/stagehand/pkg/log"
	"github.com/stagehand-io/stagehand/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check a workflow definition and print its execution order",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "workflow",
				Aliases:  []string{"w"},
				Usage:    "Path to the workflow definition file (JSON or YAML)",
				Required: true,
				Sources:  cli.EnvVars("WORKFLOW_FILE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			wf, err := workflow.LoadWorkflowFile(command.String("workflow"))
			if err != nil {
				return err
			}

			plan, err := workflow.BuildPlan(wf)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "workflow %s: %d steps\n", wf.ID, len(plan.Steps))

			for i, step := range plan.Steps {
				fmt.Fprintf(os.Stdout, "%3d. %s (%s)\n", i+1, step.UID, step.PluginID)
			}

			return nil
		},
	}
}
