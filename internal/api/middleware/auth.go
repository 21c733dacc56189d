package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/ports"
)

// IdentityKey is the echo context key holding the caller's domain.Identity.
const IdentityKey = "identity"

// Identify resolves the bearer token into the caller's identity and injects
// it into context. A missing or unusable session yields the anonymous
// identity; services reject it where authentication is required.
func Identify(resolver ports.IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))

			id, err := resolver.Resolve(c.Request().Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrUnauthenticated):
				id = domain.Anonymous()
			default:
				return err
			}

			c.Set(IdentityKey, id)
			return next(c)
		}
	}
}

// IdentityFrom returns the identity set by Identify, or the anonymous
// identity when the middleware did not run.
func IdentityFrom(c echo.Context) domain.Identity {
	id, ok := c.Get(IdentityKey).(domain.Identity)
	if !ok {
		return domain.Anonymous()
	}
	return id
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
