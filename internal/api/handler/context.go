package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/taskboard/internal/api/middleware"
	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/sanitize"
)

// actor returns the caller injected by the Identify middleware. Handlers
// never check roles themselves; the services decide.
func actor(c echo.Context) domain.Identity {
	return middleware.IdentityFrom(c)
}

// bindFields decodes the JSON body into an untyped object so the services
// can authorize before interpreting any field. Path and query values are
// never merged in. Decoder errors are not echoed back to the caller.
func bindFields(c echo.Context) (sanitize.Fields, error) {
	var in map[string]any
	if err := (&echo.DefaultBinder{}).BindBody(c, &in); err != nil {
		if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
			return nil, echo.ErrStatusRequestEntityTooLarge
		}
		return nil, domain.Invalid("", "invalid payload")
	}
	if in == nil {
		in = map[string]any{}
	}
	return sanitize.Fields(in), nil
}

// queryLimit parses the optional ?limit= parameter. Zero means the service
// default.
func queryLimit(c echo.Context) (int64, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, domain.Invalid("limit", "must be a positive integer")
	}
	return n, nil
}
