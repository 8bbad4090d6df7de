package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	cli "github.com/urfave/cli/v3"

	"github.com/voxhq/automata/pkg/agent"
	"github.com/voxhq/automata/pkg/automation"
	"github.com/voxhq/automata/pkg/cmd"
	"github.com/voxhq/automata/pkg/integration"
	"github.com/voxhq/automata/pkg/log"
	"github.com/voxhq/automata/pkg/models"
	"github.com/voxhq/automata/pkg/pipeline"
	"github.com/voxhq/automata/pkg/scheduler"
	"github.com/voxhq/automata/pkg/vault"
	"github.com/voxhq/automata/pkg/web"
)

func runEngine(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("automata")
	logger.InfoContext(ctx, "Initializing automation engine")

	persistence := cmd.NewPersistence(command.String("database-url"))
	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus := cmd.NewEventBus(logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	// The registry and the executor share the same defaults so activation
	// checks agree with what a run would do.
	defaults := models.ExecutionDefaults{AgentID: command.String("default-agent-id")}
	repository := automation.NewRepository(persistence, defaults)

	executor := pipeline.NewExecutor(
		agent.NewHTTPInvoker(command.String("agent-url")),
		vault.NewFileStore(command.String("vault-path")),
		integration.NewGateway(),
		pipeline.Config{
			DefaultAgentID: command.String("default-agent-id"),
			DefaultModelID: command.String("default-model-id"),
			AutoNoteDir:    "automations",
		},
		logger,
	)

	runner := pipeline.NewRunner(repository, executor, eventBus, logger)
	defer runner.Shutdown()

	sched := scheduler.NewScheduler(repository, runner, command.Duration("poll-interval"), logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	app := newApp(repository, runner, sched)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdown
		logger.Info("Shutting down")

		if err := app.Shutdown(); err != nil {
			logger.Error("Failed to shut down HTTP server", "error", err)
		}
	}()

	return app.Listen(":" + strconv.Itoa(command.Int("port")))
}

func newApp(repository *automation.Repository, runner *pipeline.Runner, sched *scheduler.Scheduler) *fiber.App {
	handlers := web.NewAPIHandlers(repository, runner, sched)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())
	app.Get("/health", handlers.HealthCheck)

	a := app.Group("/automations")
	a.Get("/", handlers.ListAutomations)
	a.Post("/", handlers.CreateAutomation)
	a.Get("/:id", handlers.GetAutomation)
	a.Put("/:id", handlers.UpdateAutomation)
	a.Delete("/:id", handlers.DeleteAutomation)
	a.Post("/:id/activate", handlers.ActivateAutomation)
	a.Post("/:id/deactivate", handlers.DeactivateAutomation)
	a.Post("/:id/run", handlers.RunAutomation)
	a.Post("/:id/stop", handlers.StopAutomation)
	a.Get("/:id/run", handlers.GetRunState)
	a.Get("/:id/job", handlers.GetScheduledJob)

	return app
}
