package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/voxhq/automata/pkg/log"
)

func main() {
	cmd := &cli.Command{
		Name:                  "automata",
		EnableShellCompletion: true,
		Usage:                 "Run the automation engine behind the companion shell",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Persistence URL for automation definitions (e.g. file://./data)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "vault-path",
				Usage:    "Root directory of the companion vault",
				Required: true,
				Sources:  cli.EnvVars("VAULT_PATH"),
			},
			&cli.StringFlag{
				Name:    "agent-url",
				Usage:   "Base URL of the agent backend",
				Value:   "http://127.0.0.1:4891",
				Sources: cli.EnvVars("AGENT_URL"),
			},
			&cli.StringFlag{
				Name:    "default-agent-id",
				Usage:   "Agent used by steps that name none",
				Sources: cli.EnvVars("DEFAULT_AGENT_ID"),
			},
			&cli.StringFlag{
				Name:    "default-model-id",
				Usage:   "Model passed to the agent when a step states no preference",
				Sources: cli.EnvVars("DEFAULT_MODEL_ID"),
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP API port",
				Value:   9090,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "Scheduler poll interval",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("POLL_INTERVAL"),
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

			return runEngine(ctx, command)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
