package domain

import (
	"errors"
	"time"
)

var (
	ErrRateLimited          = errors.New("too many requests")
	ErrUnauthenticated      = errors.New("not authenticated")
	ErrForbidden            = errors.New("access forbidden")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrPersistenceAmbiguous = errors.New("write acknowledgment missing")
	ErrPersistenceFailed    = errors.New("write could not be confirmed")
	ErrUpstreamUnavailable  = errors.New("store unavailable")
)

// ValidationError rejects a single request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DenyReason explains why the permission evaluator refused an action.
type DenyReason string

const (
	DenyUnauthenticated DenyReason = "not authenticated"
	DenyRoleTooLow      DenyReason = "role too low"
	DenyProtectedTarget DenyReason = "target is protected"
	DenySelfAction      DenyReason = "self-action forbidden"
	DenyNotAssigned     DenyReason = "not assigned to caller"
)

// ForbiddenError carries the reason an authenticated caller was refused.
type ForbiddenError struct {
	Reason DenyReason
}

func (e *ForbiddenError) Error() string { return string(e.Reason) }

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// RateLimitError is returned by the admission gate; ResetAt lets callers
// compute a retry delay.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string { return ErrRateLimited.Error() }

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// RetryAfter returns the whole seconds remaining until ResetAt, never less
// than one.
func (e *RateLimitError) RetryAfter(now time.Time) int {
	d := e.ResetAt.Sub(now)
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
