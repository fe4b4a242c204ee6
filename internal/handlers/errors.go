package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v3"

	"placement-service/internal/placement"
)

// statusFor maps the placement error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, placement.ErrPartialFailure):
		return fiber.StatusMultiStatus
	case errors.Is(err, placement.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, placement.ErrInvalidArgument):
		return fiber.StatusBadRequest
	case errors.Is(err, placement.ErrInvalidState), errors.Is(err, placement.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, placement.ErrResourceExhausted):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c fiber.Ctx, action string, err error) error {
	status := statusFor(err)
	log.Printf("Failed to %s: %v", action, err)

	message := err.Error()
	if status == fiber.StatusInternalServerError {
		message = "Failed to " + action
	}
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  placement.ErrorClass(err),
	})
}
