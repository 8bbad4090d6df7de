package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/voxhq/automata/pkg/models"
	"github.com/voxhq/automata/pkg/protocol"
	"github.com/voxhq/automata/pkg/template"
)

// AutoVaultPath is the sentinel vault_path value asking for an auto-generated
// timestamped destination.
const AutoVaultPath = "auto"

// Executor performs the side effect of a single pipeline step and returns its
// text result. Dispatch is a single switch over the step type; the variants
// are a closed set.
type Executor struct {
	agent        protocol.AgentInvoker
	vault        protocol.VaultStore
	integrations protocol.IntegrationGateway
	config       Config
	logger       *slog.Logger
}

func NewExecutor(
	agent protocol.AgentInvoker,
	vault protocol.VaultStore,
	integrations protocol.IntegrationGateway,
	config Config,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		agent:        agent,
		vault:        vault,
		integrations: integrations,
		config:       config,
		logger:       logger.With("module", "step_executor"),
	}
}

// Defaults exposes the fallbacks executability checks must agree with.
func (e *Executor) Defaults() models.ExecutionDefaults {
	return models.ExecutionDefaults{AgentID: e.config.DefaultAgentID}
}

// ExecuteStep runs one step against the current execution context. Templated
// fields are resolved here, immediately before the collaborator call.
func (e *Executor) ExecuteStep(ctx context.Context, step models.PipelineStep, index int, executionCtx *models.ExecutionContext) (string, error) {
	logger := e.logger.With(
		"run_id", executionCtx.RunID,
		"step_id", step.ID,
		"step_type", step.Type,
		"step_index", index,
	)

	switch step.Type {
	case models.StepTypeAgentAction:
		return e.executeAgentAction(ctx, step, executionCtx, logger)
	case models.StepTypeSaveToVault:
		return e.executeSaveToVault(ctx, step, executionCtx, logger)
	case models.StepTypeIntegrationAction:
		return e.executeIntegrationAction(ctx, step, executionCtx, logger)
	case models.StepTypeWait:
		return e.executeWait(ctx, step, logger)
	default:
		return "", fmt.Errorf("%w: unknown step type %q", models.ErrStepNotExecutable, step.Type)
	}
}

func (e *Executor) executeAgentAction(ctx context.Context, step models.PipelineStep, executionCtx *models.ExecutionContext, logger *slog.Logger) (string, error) {
	agentID := step.AgentID
	if agentID == "" {
		agentID = e.config.DefaultAgentID
	}

	if agentID == "" {
		return "", ErrNoAgent
	}

	prompt := template.Resolve(step.Prompt, executionCtx)
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	modelID := step.PreferredModelID
	if modelID == "" {
		modelID = e.config.DefaultModelID
	}

	logger.Info("Invoking agent", "agent_id", agentID, "model_id", modelID)

	// A stop request never aborts an in-flight collaborator call; it only
	// prevents the next step from starting.
	result, err := e.agent.Invoke(context.WithoutCancel(ctx), agentID, prompt, modelID)
	if err != nil {
		return "", fmt.Errorf("agent invocation failed: %w", err)
	}

	return result, nil
}

func (e *Executor) executeSaveToVault(ctx context.Context, step models.PipelineStep, executionCtx *models.ExecutionContext, logger *slog.Logger) (string, error) {
	destination := step.VaultPath
	if destination == AutoVaultPath {
		destination = e.autoNotePath(executionCtx)
	} else {
		destination = template.Resolve(destination, executionCtx)
	}

	if strings.TrimSpace(destination) == "" {
		return "", ErrNoDestination
	}

	var content string
	if step.SourceVariable == "" {
		content = executionCtx.Concatenated()
	} else {
		content, _ = executionCtx.Get(step.SourceVariable)
	}

	mode := step.WriteMode
	if mode == "" {
		mode = models.WriteModeOverwrite
	}

	logger.Info("Writing to vault", "path", destination, "mode", mode, "bytes", len(content))

	if err := e.vault.Write(context.WithoutCancel(ctx), destination, content, mode); err != nil {
		return "", fmt.Errorf("vault write to %s failed: %w", destination, err)
	}

	return destination, nil
}

func (e *Executor) executeIntegrationAction(ctx context.Context, step models.PipelineStep, executionCtx *models.ExecutionContext, logger *slog.Logger) (string, error) {
	args := template.ResolveArgs(step.IntegrationArgs, executionCtx)

	logger.Info("Executing integration action",
		"integration_id", step.IntegrationID,
		"action", step.IntegrationAction,
	)

	result, err := e.integrations.Execute(context.WithoutCancel(ctx), step.IntegrationID, step.IntegrationAction, args)
	if err != nil {
		return "", fmt.Errorf("integration %s action %s failed: %w", step.IntegrationID, step.IntegrationAction, err)
	}

	return result, nil
}

// executeWait pauses without holding a goroutine past cancellation: a stop
// request interrupts the sleep instead of letting the run linger.
func (e *Executor) executeWait(ctx context.Context, step models.PipelineStep, logger *slog.Logger) (string, error) {
	duration := step.WaitDuration()

	logger.Info("Waiting", "duration", duration)

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return fmt.Sprintf("waited %s", duration), nil
	}
}

func (e *Executor) autoNotePath(executionCtx *models.ExecutionContext) string {
	name := fmt.Sprintf("automation-%s-%s.md",
		executionCtx.AutomationID,
		time.Now().Format("2006-01-02-150405"),
	)

	return path.Join(e.config.AutoNoteDir, name)
}
