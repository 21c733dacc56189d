package middleware

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/ratelimit"
)

const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
)

// Checker is the admission gate consulted by RateLimit.
type Checker interface {
	Check(ctx context.Context, policy, identifier string, cfg ratelimit.Config) ratelimit.Result
}

// RateLimit admits requests per client IP under the named policy. It runs
// before Identify so rejected callers never reach the session store.
func RateLimit(l Checker, policy string, cfg ratelimit.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res := l.Check(c.Request().Context(), policy, c.RealIP(), cfg)

			h := c.Response().Header()
			h.Set(HeaderRateLimitLimit, strconv.Itoa(res.Limit))
			h.Set(HeaderRateLimitRemaining, strconv.Itoa(res.Remaining))

			if !res.Allowed {
				return &domain.RateLimitError{ResetAt: res.ResetAt}
			}
			return next(c)
		}
	}
}
