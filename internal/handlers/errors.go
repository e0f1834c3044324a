package handlers

import (
	"errors"

	"github.com/arzan03/urbanscope/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError writes the client-facing response for err. Unclassified errors
// are logged and surface as a generic 500.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		log.Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	status := statusFor(svcErr.Kind)
	if status >= fiber.StatusInternalServerError {
		log.Error(svcErr.Message, zap.String("path", c.Path()), zap.Error(svcErr.Err))
	}
	return c.Status(status).JSON(fiber.Map{"error": svcErr.Message})
}

func statusFor(kind error) int {
	switch kind {
	case services.ErrValidation, services.ErrConflict:
		return fiber.StatusBadRequest
	case services.ErrUnauthenticated:
		return fiber.StatusUnauthorized
	case services.ErrForbidden:
		return fiber.StatusForbidden
	case services.ErrNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
