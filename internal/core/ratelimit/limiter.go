// Package ratelimit implements the fixed-window admission gate that runs
// before every other check on a request.
//
// A window is identified by floor(now/window); the first hit in a window
// opens it with resetAt = now+window, later hits increment the count and are
// denied once the count exceeds the limit. Stale entries are reclaimed by a
// sweep that never influences decisions, because lookups always use the
// current bucket.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// UnknownIdentifier is the shared bucket for callers without an identifier.
const UnknownIdentifier = "unknown"

// Config is a single logical limit. Limits are chosen per call site.
type Config struct {
	Window      time.Duration
	MaxRequests int
}

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Store keeps window counters. Hit must be atomic for a given key: it
// increments the counter for key, opening a new window with resetAt =
// now+window when none exists or the stored one has expired, and returns the
// resulting count and resetAt.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Observer is notified of every decision. Used for metrics.
type Observer func(policy string, res Result, degraded bool)

// Limiter is safe for concurrent use.
type Limiter struct {
	store    Store
	fallback *MemoryStore
	now      func() time.Time
	log      zerolog.Logger
	observe  Observer
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithObserver registers a decision callback.
func WithObserver(o Observer) Option {
	return func(l *Limiter) { l.observe = o }
}

// New returns a Limiter backed by store. When store fails, checks degrade to
// a process-local MemoryStore so the gate keeps counting instead of opening.
func New(store Store, log zerolog.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		store:    store,
		fallback: NewMemoryStore(),
		now:      time.Now,
		log:      log,
	}
	if store == nil {
		l.store = l.fallback
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check admits or denies one request from identifier under cfg. It never
// fails; an invalid cfg admits nothing.
func (l *Limiter) Check(ctx context.Context, policy, identifier string, cfg Config) Result {
	if identifier == "" {
		identifier = UnknownIdentifier
	}
	now := l.now()
	if cfg.Window < time.Millisecond || cfg.MaxRequests <= 0 {
		return Result{Limit: cfg.MaxRequests, ResetAt: now}
	}

	key := BucketKey(policy, identifier, now, cfg.Window)
	count, resetAt, err := l.store.Hit(ctx, key, now, cfg.Window)
	degraded := false
	if err != nil {
		l.log.Warn().Err(err).Str("policy", policy).Msg("rate limit store failed, using local counters")
		count, resetAt, _ = l.fallback.Hit(ctx, key, now, cfg.Window)
		degraded = true
	}

	res := Result{
		Allowed:   count <= int64(cfg.MaxRequests),
		Limit:     cfg.MaxRequests,
		Remaining: max(0, cfg.MaxRequests-int(min(count, int64(cfg.MaxRequests)))),
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		l.log.Debug().Str("policy", policy).Str("identifier", identifier).Time("reset_at", resetAt).Msg("rate limited")
	}
	if l.observe != nil {
		l.observe(policy, res, degraded)
	}
	return res
}

// Fallback exposes the local store so it can be swept alongside the primary.
func (l *Limiter) Fallback() *MemoryStore { return l.fallback }

// BucketKey is policy:identifier:floor(now/window).
func BucketKey(policy, identifier string, now time.Time, window time.Duration) string {
	bucket := now.UnixMilli() / max(window.Milliseconds(), 1)
	return policy + ":" + identifier + ":" + strconv.FormatInt(bucket, 10)
}
