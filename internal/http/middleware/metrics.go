package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestObserver records request latency.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// Metrics reports each request under its route pattern so per-item paths
// do not explode label cardinality.
func Metrics(obs RequestObserver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		obs.ObserveRequest(c.Method(), c.Route().Path, statusOf(c, err), time.Since(start))
		return err
	}
}
