package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/bnema/imagerelay/internal/boundaries/out"
	"github.com/bnema/imagerelay/internal/domain"
)

// RateLimit rejects requests once the client's bucket is empty. A nil limiter
// disables the check.
func RateLimit(limiter out.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limiter == nil {
			return next
		}
		return func(c echo.Context) error {
			if !limiter.Allow(c.Request().Context(), "ip:"+c.RealIP()) {
				c.Response().Header().Set("Retry-After", "1")
				return domain.ErrRateLimited
			}
			return next(c)
		}
	}
}
