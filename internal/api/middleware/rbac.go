package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/permission"
)

// RequirePrivileged rejects callers whose role does not carry full rights.
// It must run after Identify.
func RequirePrivileged() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := IdentityFrom(c)
			if err := permission.Authenticated(actor).Err(); err != nil {
				return err
			}
			if !permission.IsPrivileged(actor.Role) {
				return &domain.ForbiddenError{Reason: domain.DenyRoleTooLow}
			}
			return next(c)
		}
	}
}
