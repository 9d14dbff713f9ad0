package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/spectra/internal/app/apperror"
	"go.uber.org/zap"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool `json:"success"`
	Payload any  `json:"payload"`
}

func respond(c *fiber.Ctx, status int, payload any) error {
	return c.Status(status).JSON(envelope{Success: true, Payload: payload})
}

func ok(c *fiber.Ctx, payload any) error {
	return respond(c, fiber.StatusOK, payload)
}

func userContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

// ErrorHandler renders errors returned by handlers as a failed envelope.
// Errors without a client-facing kind are logged and sent as 500.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := err.Error()

		var appErr *apperror.Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &appErr):
			status = appErr.StatusCode()
			message = appErr.Error()
			if status >= fiber.StatusInternalServerError {
				logger.Error("request failed", zap.String("path", c.Path()), zap.String("trace", appErr.Trace()))
			}
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			message = fiberErr.Message
		default:
			logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(status).JSON(envelope{Success: false, Payload: message})
	}
}
