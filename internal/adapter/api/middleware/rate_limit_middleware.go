package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"matchchat/internal/infrastructure/ratelimit"
	"matchchat/pkg/logger"
)

// RateLimit limits requests per authenticated user, or per client IP before
// authentication, under the given action's policy.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, _ := c.Get("uid").(string)
			if key == "" {
				key = "ip:" + c.RealIP()
			}

			ok, wait := limiter.Allow(key, action)
			if !ok {
				retryAfter := int(math.Ceil(wait.Seconds()))
				logger.Warn("RATE LIMIT: %s exceeded %s (retry in %ds)", key, action, retryAfter)
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":       "Rate limit exceeded",
					"retry_after": retryAfter,
				})
			}

			return next(c)
		}
	}
}
