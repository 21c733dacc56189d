package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/taskboard/internal/api/metrics"
	"github.com/99minutos/taskboard/internal/core/domain"
)

// ErrorResponse is the canonical error envelope for all API errors.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps the domain error taxonomy to HTTP status codes.
//   - Sets Retry-After on rate limit rejections.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"ok": false, "error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger, now func() time.Time) echo.HTTPErrorHandler {
	if now == nil {
		now = time.Now
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c, now)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, ErrorResponse{OK: false, Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context, now func() time.Time) (int, string) {
	// Echo's own errors (unknown route, wrong method, body limit). Their
	// messages are replaced so the wording matches the domain errors.
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code == http.StatusNotFound {
			return he.Code, domain.ErrNotFound.Error()
		}
		if text := http.StatusText(he.Code); text != "" {
			return he.Code, strings.ToLower(text)
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var (
		rl *domain.RateLimitError
		fe *domain.ForbiddenError
		ve *domain.ValidationError
	)
	switch {
	case errors.As(err, &rl):
		c.Response().Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(now())))
		return http.StatusTooManyRequests, domain.ErrRateLimited.Error()
	case errors.Is(err, domain.ErrUnauthenticated):
		metrics.AuthorizationDenialsTotal.WithLabelValues(string(domain.DenyUnauthenticated)).Inc()
		return http.StatusUnauthorized, domain.ErrUnauthenticated.Error()
	case errors.As(err, &fe):
		metrics.AuthorizationDenialsTotal.WithLabelValues(string(fe.Reason)).Inc()
		return http.StatusForbidden, fe.Error()
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, domain.ErrInvalidInput.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, domain.ErrInvalidCredentials.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.ErrNotFound.Error()
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		log.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("store unavailable")
		return http.StatusServiceUnavailable, domain.ErrUpstreamUnavailable.Error()
	}

	// PersistenceFailed and anything unexpected: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
