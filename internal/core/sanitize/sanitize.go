// Package sanitize normalizes untrusted request values before they reach
// business logic. Every function is total: bad input yields a rejection
// (*domain.ValidationError) or a normalized zero value, never a panic.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/99minutos/taskboard/internal/core/domain"
)

const (
	MaxEmailLength    = 254
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MaxIDLength       = 64
)

var (
	validate = validator.New()

	// local@domain.tld, nothing fancier.
	emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// String trims, strips control characters (below 0x20 and 0x7F) and
// truncates to maxLen runes. Non-string input yields "".
func String(raw any, maxLen int) string {
	s, ok := raw.(string)
	if !ok {
		return ""
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7F {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if maxLen >= 0 && utf8.RuneCountInString(s) > maxLen {
		s = string([]rune(s)[:maxLen])
	}
	return s
}

// Email lower-cases, trims and checks the local@domain.tld shape.
func Email(raw any) (string, error) {
	s := strings.ToLower(String(raw, -1))
	if s == "" {
		return "", domain.Invalid("email", "is required")
	}
	if len(s) > MaxEmailLength || !emailShape.MatchString(s) || validate.Var(s, "email") != nil {
		return "", domain.Invalid("email", "must be a valid email")
	}
	return s, nil
}

// Password enforces the length policy only. The value is not trimmed:
// whitespace is part of the secret.
func Password(raw any) (string, error) {
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", domain.Invalid("password", "is required")
	}
	n := utf8.RuneCountInString(s)
	if n < MinPasswordLength {
		return "", domain.Invalid("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if n > MaxPasswordLength {
		return "", domain.Invalid("password", fmt.Sprintf("must be at most %d characters", MaxPasswordLength))
	}
	return s, nil
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, time.DateOnly}

// Date accepts an RFC 3339 timestamp or a YYYY-MM-DD date that names a real
// calendar day. The zone carried by the value is kept as is.
func Date(field string, raw any) (time.Time, error) {
	s := String(raw, 64)
	if s == "" {
		return time.Time{}, domain.Invalid(field, "is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.Invalid(field, "must be a valid date")
}

// List validates an array of short strings: every element must be a
// non-empty string of at most itemMax runes, and the array may hold at most
// max elements. Duplicates are dropped, order is kept.
func List(field string, raw any, max, itemMax int) ([]string, error) {
	items, err := elements(field, raw, itemMax)
	if err != nil {
		return nil, err
	}
	if len(items) > max {
		return nil, domain.Invalid(field, fmt.Sprintf("must contain at most %d items", max))
	}
	return items, nil
}

// ListTruncated is List for call sites that keep the first max elements of
// an oversized array instead of rejecting it. Malformed elements are still
// rejected.
func ListTruncated(field string, raw any, max, itemMax int) ([]string, error) {
	items, err := elements(field, raw, itemMax)
	if err != nil {
		return nil, err
	}
	if len(items) > max {
		items = items[:max]
	}
	return items, nil
}

// IDs is List for entity identifiers.
func IDs(field string, raw any, max int) ([]string, error) {
	return List(field, raw, max, MaxIDLength)
}

func elements(field string, raw any, itemMax int) ([]string, error) {
	var in []any
	switch v := raw.(type) {
	case nil:
		return []string{}, nil
	case []any:
		in = v
	case []string:
		in = make([]any, len(v))
		for i, s := range v {
			in[i] = s
		}
	default:
		return nil, domain.Invalid(field, "must be an array of strings")
	}

	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for i, el := range in {
		if _, ok := el.(string); !ok {
			return nil, domain.Invalid(field, fmt.Sprintf("item %d must be a string", i))
		}
		s := String(el, -1)
		if s == "" {
			return nil, domain.Invalid(field, fmt.Sprintf("item %d must not be empty", i))
		}
		if utf8.RuneCountInString(s) > itemMax {
			return nil, domain.Invalid(field, fmt.Sprintf("item %d is too long", i))
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}
