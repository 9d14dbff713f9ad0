package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/spectra/internal/app/apperror"
	"github.com/sifan077/spectra/internal/app/validation"
)

// normalizer is implemented by requests that tidy their fields before they
// are validated.
type normalizer interface {
	normalize()
}

// bind parses the body into req and checks its validate tags.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperror.Invalid("Invalid request").WithCause(err)
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	return validation.Struct(req)
}
