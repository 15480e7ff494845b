package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"meetpoint/services"
)

// errorResponse maps the service error taxonomy onto HTTP statuses.
func errorResponse(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		code = fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		code = fiber.StatusConflict
	case errors.Is(err, services.ErrUpstream):
		code = fiber.StatusBadGateway
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
