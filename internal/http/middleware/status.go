package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type statusCoder interface {
	StatusCode() int
}

// statusOf predicts the status the error handler will send for err.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return fiber.StatusInternalServerError
}
