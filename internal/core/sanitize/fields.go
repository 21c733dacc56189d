package sanitize

import (
	"fmt"
	"strings"
	"time"

	"github.com/99minutos/taskboard/internal/core/domain"
)

// Fields is a decoded JSON object from an untrusted request body.
type Fields map[string]any

// Has reports whether key was present in the body, even if null.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// RequiredString returns the sanitized value of key, rejecting it when
// absent or empty after sanitizing.
func (f Fields) RequiredString(key string, maxLen int) (string, error) {
	s := String(f[key], maxLen)
	if s == "" {
		return "", domain.Invalid(key, "is required")
	}
	return s, nil
}

// OptionalString returns nil when key is absent, else the sanitized value.
func (f Fields) OptionalString(key string, maxLen int) *string {
	if !f.Has(key) {
		return nil
	}
	s := String(f[key], maxLen)
	return &s
}

// OptionalDate returns nil when key is absent or null.
func (f Fields) OptionalDate(key string) (*time.Time, error) {
	if raw, ok := f[key]; !ok || raw == nil {
		return nil, nil
	}
	t, err := Date(key, f[key])
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// OptionalList returns nil when key is absent.
func (f Fields) OptionalList(key string, max, itemMax int) (*[]string, error) {
	if !f.Has(key) {
		return nil, nil
	}
	items, err := List(key, f[key], max, itemMax)
	if err != nil {
		return nil, err
	}
	return &items, nil
}

// Enum parses key with parse, which must accept only members of a closed set.
// allowed is listed in the rejection message.
func Enum[T ~string](f Fields, key string, parse func(string) (T, bool), allowed []T) (*T, error) {
	if !f.Has(key) {
		return nil, nil
	}
	v, ok := parse(String(f[key], 32))
	if !ok {
		names := make([]string, len(allowed))
		for i, a := range allowed {
			names[i] = string(a)
		}
		return nil, domain.Invalid(key, fmt.Sprintf("must be one of: %s", strings.Join(names, ", ")))
	}
	return &v, nil
}
