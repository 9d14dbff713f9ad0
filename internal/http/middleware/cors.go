package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CORS allows the configured origin to call the API with credentials. An
// empty origin falls back to reflecting the request's Origin header.
func CORS(origin string) fiber.Handler {
	origin = strings.TrimRight(origin, "/")
	return func(c *fiber.Ctx) error {
		allowed := origin
		if allowed == "" {
			allowed = c.Get(fiber.HeaderOrigin)
		}
		if allowed != "" {
			c.Set(fiber.HeaderAccessControlAllowOrigin, allowed)
			c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
			c.Vary(fiber.HeaderOrigin)
		}
		c.Set(fiber.HeaderAccessControlAllowMethods, "GET, POST, PUT, DELETE, OPTIONS")
		c.Set(fiber.HeaderAccessControlAllowHeaders, "Origin, Content-Type, Accept, Range")
		c.Set(fiber.HeaderAccessControlExposeHeaders, "Content-Length, Content-Range, Content-Disposition")
		c.Set(fiber.HeaderAccessControlMaxAge, "86400")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}
