package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/voxhq/automata/pkg/models"
	"github.com/voxhq/automata/pkg/persistence"
	"github.com/voxhq/automata/pkg/pipeline"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleEngineError maps engine errors to problem responses.
func handleEngineError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsAutomationNotFound(err):
		return notFound(c, "automation not found")
	case errors.Is(err, pipeline.ErrAlreadyRunning):
		return conflict(c, "automation already has a run in flight")
	case errors.Is(err, pipeline.ErrRunNotFound):
		return notFound(c, "no active run")
	case errors.Is(err, models.ErrEmptyPipeline),
		errors.Is(err, models.ErrStepNotExecutable),
		errors.Is(err, models.ErrInvalidTrigger):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}
