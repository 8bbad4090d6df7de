// Package web exposes the engine to the UI layer over HTTP.
package web

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/voxhq/automata/pkg/automation"
	"github.com/voxhq/automata/pkg/models"
	"github.com/voxhq/automata/pkg/pipeline"
	"github.com/voxhq/automata/pkg/scheduler"
)

type APIHandlers struct {
	repository *automation.Repository
	runner     *pipeline.Runner
	scheduler  *scheduler.Scheduler
	validator  *validator.Validate
}

func NewAPIHandlers(
	repository *automation.Repository,
	runner *pipeline.Runner,
	sched *scheduler.Scheduler,
) *APIHandlers {
	return &APIHandlers{
		repository: repository,
		runner:     runner,
		scheduler:  sched,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *APIHandlers) ListAutomations(c fiber.Ctx) error {
	automations, err := h.repository.List(c.Context())
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(fiber.Map{"automations": automations})
}

func (h *APIHandlers) GetAutomation(c fiber.Ctx) error {
	auto, err := h.repository.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(auto)
}

func (h *APIHandlers) CreateAutomation(c fiber.Ctx) error {
	var auto models.Automation
	if err := c.Bind().Body(&auto); err != nil {
		return badRequest(c, "invalid automation payload: "+err.Error())
	}

	if err := h.validator.Struct(&auto); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.repository.Create(c.Context(), &auto)
	if err != nil {
		return handleEngineError(c, err)
	}

	h.scheduler.Refresh(c.Context(), created.ID)

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateAutomation(c fiber.Ctx) error {
	var auto models.Automation
	if err := c.Bind().Body(&auto); err != nil {
		return badRequest(c, "invalid automation payload: "+err.Error())
	}

	updated, err := h.repository.Update(c.Context(), c.Params("id"), &auto)
	if err != nil {
		return handleEngineError(c, err)
	}

	// Trigger edits take effect immediately, not on the next poll tick.
	h.scheduler.Refresh(c.Context(), updated.ID)

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteAutomation(c fiber.Ctx) error {
	id := c.Params("id")

	// An in-flight run and a pending job must not outlive the definition.
	_ = h.runner.StopByAutomation(id)

	if err := h.repository.Delete(c.Context(), id); err != nil {
		return handleEngineError(c, err)
	}

	h.scheduler.Refresh(c.Context(), id)

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ActivateAutomation(c fiber.Ctx) error {
	auto, err := h.repository.SetActive(c.Context(), c.Params("id"), true)
	if err != nil {
		return handleEngineError(c, err)
	}

	h.scheduler.Refresh(c.Context(), auto.ID)

	return c.JSON(auto)
}

func (h *APIHandlers) DeactivateAutomation(c fiber.Ctx) error {
	auto, err := h.repository.SetActive(c.Context(), c.Params("id"), false)
	if err != nil {
		return handleEngineError(c, err)
	}

	h.scheduler.Refresh(c.Context(), auto.ID)

	return c.JSON(auto)
}

func (h *APIHandlers) RunAutomation(c fiber.Ctx) error {
	runID, err := h.runner.Start(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": runID})
}

func (h *APIHandlers) StopAutomation(c fiber.Ctx) error {
	if err := h.runner.StopByAutomation(c.Params("id")); err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) GetRunState(c fiber.Ctx) error {
	state := h.runner.RunStateFor(c.Params("id"))
	if state == nil {
		return notFound(c, "automation has no run")
	}

	return c.JSON(state)
}

func (h *APIHandlers) GetScheduledJob(c fiber.Ctx) error {
	job := h.scheduler.GetJob(c.Params("id"))
	if job == nil {
		return notFound(c, "automation has no scheduled job")
	}

	return c.JSON(job)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, healthy := h.repository.HealthCheck(c.Context())
	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": message})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
