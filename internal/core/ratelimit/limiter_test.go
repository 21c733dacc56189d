package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// aligned start so a test window never straddles two buckets by accident
var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestLimiter(store Store) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: epoch}
	return New(store, zerolog.Nop(), WithClock(clock.Now)), clock
}

func TestCheck_AllowsUpToMaxThenDenies(t *testing.T) {
	l, _ := newTestLimiter(NewMemoryStore())
	cfg := Config{Window: time.Minute, MaxRequests: 5}

	prev := cfg.MaxRequests
	for i := 0; i < cfg.MaxRequests; i++ {
		res := l.Check(context.Background(), PolicyCreate, "10.0.0.1", cfg)
		if !res.Allowed {
			t.Fatalf("call %d should be allowed", i+1)
		}
		if res.Remaining >= prev {
			t.Fatalf("remaining must strictly decrease: %d after %d", res.Remaining, prev)
		}
		prev = res.Remaining
	}

	res := l.Check(context.Background(), PolicyCreate, "10.0.0.1", cfg)
	if res.Allowed {
		t.Fatal("max+1-th call must be denied")
	}
	if res.Remaining != 0 {
		t.Errorf("denied remaining: want 0, got %d", res.Remaining)
	}
}

func TestCheck_DeniedResultKeepsResetAt(t *testing.T) {
	l, clock := newTestLimiter(NewMemoryStore())
	cfg := Config{Window: time.Minute, MaxRequests: 1}

	first := l.Check(context.Background(), PolicyDelete, "u1", cfg)
	if want := epoch.Add(time.Minute); !first.ResetAt.Equal(want) {
		t.Fatalf("resetAt: want %v, got %v", want, first.ResetAt)
	}

	clock.Set(epoch.Add(10 * time.Second))
	denied := l.Check(context.Background(), PolicyDelete, "u1", cfg)
	if denied.Allowed {
		t.Fatal("second call must be denied")
	}
	if !denied.ResetAt.Equal(first.ResetAt) {
		t.Errorf("denied resetAt changed: %v vs %v", denied.ResetAt, first.ResetAt)
	}
}

func TestCheck_FreshWindowAtResetAt(t *testing.T) {
	store := NewMemoryStore()
	l, clock := newTestLimiter(store)
	cfg := Config{Window: time.Minute, MaxRequests: 2}

	clock.Set(epoch.Add(45 * time.Second))
	var last Result
	for i := 0; i < 3; i++ {
		last = l.Check(context.Background(), PolicyRead, "ip", cfg)
	}
	if last.Allowed {
		t.Fatal("third call should be denied")
	}

	clock.Set(last.ResetAt)
	res := l.Check(context.Background(), PolicyRead, "ip", cfg)
	if !res.Allowed || res.Remaining != cfg.MaxRequests-1 {
		t.Fatalf("call at resetAt must open a fresh window, got %+v", res)
	}
	if store.Len() != 2 {
		t.Errorf("expected the stale entry to linger until swept, got %d entries", store.Len())
	}
}

func TestCheck_StaleEntryRestartsRegardlessOfSweep(t *testing.T) {
	store := NewMemoryStore()
	key := BucketKey(PolicyRead, "ip", epoch, time.Minute)
	// leave an expired window under the current key
	if _, _, err := store.Hit(context.Background(), key, epoch.Add(-2*time.Minute), time.Minute); err != nil {
		t.Fatal(err)
	}

	l, _ := newTestLimiter(store)
	res := l.Check(context.Background(), PolicyRead, "ip", Config{Window: time.Minute, MaxRequests: 1})
	if !res.Allowed {
		t.Fatalf("expired entry must not count: %+v", res)
	}
}

func TestCheck_EmptyIdentifierSharesUnknownBucket(t *testing.T) {
	l, _ := newTestLimiter(NewMemoryStore())
	cfg := Config{Window: time.Minute, MaxRequests: 1}

	if !l.Check(context.Background(), PolicyLogin, "", cfg).Allowed {
		t.Fatal("first anonymous call should pass")
	}
	if l.Check(context.Background(), PolicyLogin, UnknownIdentifier, cfg).Allowed {
		t.Fatal("empty identifier must share the unknown bucket")
	}
}

func TestCheck_PoliciesAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(NewMemoryStore())
	tight := Config{Window: time.Minute, MaxRequests: 1}

	l.Check(context.Background(), PolicyCreate, "u1", tight)
	if !l.Check(context.Background(), PolicyRead, "u1", tight).Allowed {
		t.Fatal("read policy must not see create counts")
	}
}

func TestCheck_InvalidConfigAdmitsNothing(t *testing.T) {
	l, _ := newTestLimiter(NewMemoryStore())
	if l.Check(context.Background(), PolicyRead, "u1", Config{}).Allowed {
		t.Fatal("zero config must deny")
	}
}

type failingStore struct{ calls atomic.Int64 }

func (f *failingStore) Hit(context.Context, string, time.Time, time.Duration) (int64, time.Time, error) {
	f.calls.Add(1)
	return 0, time.Time{}, errors.New("connection refused")
}

func TestCheck_StoreFailureDegradesToLocalCounters(t *testing.T) {
	store := &failingStore{}
	var degraded int
	clock := &fakeClock{now: epoch}
	l := New(store, zerolog.Nop(), WithClock(clock.Now), WithObserver(func(_ string, _ Result, d bool) {
		if d {
			degraded++
		}
	}))
	cfg := Config{Window: time.Minute, MaxRequests: 2}

	results := []bool{
		l.Check(context.Background(), PolicyCreate, "u1", cfg).Allowed,
		l.Check(context.Background(), PolicyCreate, "u1", cfg).Allowed,
		l.Check(context.Background(), PolicyCreate, "u1", cfg).Allowed,
	}
	if !results[0] || !results[1] || results[2] {
		t.Fatalf("fallback must still enforce the limit, got %v", results)
	}
	if degraded != 3 || store.calls.Load() != 3 {
		t.Errorf("expected 3 degraded decisions, got %d (store calls %d)", degraded, store.calls.Load())
	}
}

func TestCheck_ConcurrentCallersNeverExceedLimit(t *testing.T) {
	l, _ := newTestLimiter(NewMemoryStore())
	cfg := Config{Window: time.Minute, MaxRequests: 50}

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check(context.Background(), PolicyRead, "shared", cfg).Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != int64(cfg.MaxRequests) {
		t.Fatalf("expected exactly %d admissions, got %d", cfg.MaxRequests, got)
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, _, _ = store.Hit(ctx, "old", epoch, time.Minute)
	_, _, _ = store.Hit(ctx, "new", epoch.Add(50*time.Second), time.Minute)

	if n := store.Sweep(epoch.Add(time.Minute)); n != 1 {
		t.Fatalf("expected 1 swept entry, got %d", n)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 live entry, got %d", store.Len())
	}
}

func TestBucketKey(t *testing.T) {
	a := BucketKey(PolicyRead, "ip", epoch, time.Minute)
	b := BucketKey(PolicyRead, "ip", epoch.Add(59*time.Second), time.Minute)
	c := BucketKey(PolicyRead, "ip", epoch.Add(time.Minute), time.Minute)
	if a != b {
		t.Errorf("same window should share a key: %s vs %s", a, b)
	}
	if a == c {
		t.Errorf("next window must get a new key: %s", c)
	}
}
