package web

import (
	"github.com/dukex/opsplan/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

// handleServiceError maps service error kinds to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	var (
		status     int
		problemTyp string
	)

	switch {
	case services.IsValidationError(err):
		status, problemTyp = fiber.StatusBadRequest, "validation_error"
	case services.IsNotFoundError(err):
		status, problemTyp = fiber.StatusNotFound, "not_found"
	case services.IsConflictError(err):
		status, problemTyp = fiber.StatusConflict, "conflict"
	default:
		// Storage details stay in the logs
		problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithDetail("internal server error")

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}

	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemTyp).
		WithDetail(err.Error())

	return c.Status(status).JSON(problem)
}
