package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/spectra/config"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// NewRateLimitConfig converts the rate_limit config section.
func NewRateLimitConfig(cfg config.RateLimitConfig, prefix string) (RateLimitConfig, error) {
	window, err := time.ParseDuration(cfg.Window)
	if err != nil || window <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid rate_limit.window %q", cfg.Window)
	}
	if cfg.MaxRequests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid rate_limit.max_requests %d", cfg.MaxRequests)
	}
	return RateLimitConfig{MaxRequests: cfg.MaxRequests, Window: window, KeyPrefix: prefix}, nil
}

// RateLimit counts requests per client IP in fixed Redis windows. Requests
// pass through when Redis is unavailable or client is nil.
func RateLimit(client *redis.Client, cfg RateLimitConfig, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if client == nil {
			return c.Next()
		}
		ctx := c.UserContext()
		key := cfg.KeyPrefix + ":" + c.IP()

		var incr *redis.IntCmd
		_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, cfg.Window)
			return nil
		})
		if err != nil {
			logger.Warn("rate limit redis error", zap.Error(err), zap.String("key", key))
			return c.Next()
		}

		count := incr.Val()
		remaining := int64(cfg.MaxRequests) - count
		c.Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(max(0, remaining), 10))

		if count > int64(cfg.MaxRequests) {
			if ttl, err := client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(ttl.Seconds())+1))
			}
			return fiber.NewError(fiber.StatusTooManyRequests, "Rate limit exceeded")
		}
		return c.Next()
	}
}
