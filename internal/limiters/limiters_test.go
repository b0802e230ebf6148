package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestFixedWindowLimitsPerKey(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l, err := NewFixedWindow(rdb, Policy{Name: "login", Limit: 3, Window: time.Minute})
	if err != nil {
		t.Fatalf("NewFixedWindow: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Allow(ctx, "10.0.0.1"); err != nil {
			t.Fatalf("attempt %d: unexpected %v", i+1, err)
		}
	}
	if err := l.Allow(ctx, "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.Allow(ctx, "10.0.0.2"); err != nil {
		t.Fatalf("other key must be independent: %v", err)
	}

	if ttl := mr.TTL("arl:login:10.0.0.1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.Allow(ctx, "10.0.0.1"); err != nil {
		t.Fatalf("window should have reset: %v", err)
	}
}

func TestFixedWindowRestoresMissingTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l, err := NewFixedWindow(rdb, Policy{Name: "login", Limit: 3, Window: time.Minute})
	if err != nil {
		t.Fatalf("NewFixedWindow: %v", err)
	}
	// A counter left behind without a TTL, over the limit.
	if err := mr.Set("arl:login:10.0.0.1", "7"); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	if err := l.Allow(context.Background(), "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if ttl := mr.TTL("arl:login:10.0.0.1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected the window TTL to be restored, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.Allow(context.Background(), "10.0.0.1"); err != nil {
		t.Fatalf("counter must expire once its TTL is restored: %v", err)
	}
}

func TestFixedWindowKeepsWindowStart(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l, err := NewFixedWindow(rdb, Policy{Name: "login", Limit: 10, Window: time.Minute})
	if err != nil {
		t.Fatalf("NewFixedWindow: %v", err)
	}
	ctx := context.Background()

	_ = l.Allow(ctx, "k")
	mr.FastForward(40 * time.Second)
	_ = l.Allow(ctx, "k")
	if ttl := mr.TTL("arl:login:k"); ttl > 20*time.Second {
		t.Fatalf("later hits must not extend the window, ttl %v", ttl)
	}
}

func TestFixedWindowReset(t *testing.T) {
	_, rdb := newTestRedis(t)
	l, err := NewFixedWindow(rdb, Policy{Name: "otp", Limit: 1, Window: time.Minute})
	if err != nil {
		t.Fatalf("NewFixedWindow: %v", err)
	}
	ctx := context.Background()

	_ = l.Allow(ctx, "k")
	if err := l.Allow(ctx, "k"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.Reset(ctx, "k"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := l.Allow(ctx, "k"); err != nil {
		t.Fatalf("expected allow after reset, got %v", err)
	}
}

func TestFixedWindowRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l, err := NewFixedWindow(rdb, Policy{Name: "login", Limit: 3, Window: time.Minute})
	if err != nil {
		t.Fatalf("NewFixedWindow: %v", err)
	}
	mr.Close()

	if err := l.Allow(context.Background(), "k"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestNewFixedWindowRejectsBadPolicy(t *testing.T) {
	_, rdb := newTestRedis(t)
	if _, err := NewFixedWindow(rdb, Policy{Name: "x", Limit: 0, Window: time.Minute}); err == nil {
		t.Fatal("expected error for zero limit")
	}
	if _, err := NewFixedWindow(nil, Policy{Name: "x", Limit: 1, Window: time.Minute}); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestLocalTokenBucket(t *testing.T) {
	l, err := NewLocal(Policy{Name: "sensitive", Limit: 5, Window: time.Minute})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := l.Allow(ctx, "ip"); err != nil {
			t.Fatalf("attempt %d: unexpected %v", i+1, err)
		}
	}
	if err := l.Allow(ctx, "ip"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	now = now.Add(12 * time.Second)
	if err := l.Allow(ctx, "ip"); err != nil {
		t.Fatalf("one token should have refilled: %v", err)
	}
}

func TestLocalSweepsIdleBuckets(t *testing.T) {
	l, err := NewLocal(Policy{Name: "s", Limit: 1, Window: time.Second})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	_ = l.Allow(context.Background(), "old")
	now = now.Add(2 * time.Second)
	for i := 0; i < sweepEvery; i++ {
		_ = l.Allow(context.Background(), "new")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.buckets["old"]; ok {
		t.Fatal("idle bucket was not swept")
	}
}

type stubLimiter struct {
	err   error
	calls int
}

func (s *stubLimiter) Allow(context.Context, string) error {
	s.calls++
	return s.err
}

func TestFailover(t *testing.T) {
	primary := &stubLimiter{err: ErrRedisUnavailable}
	secondary := &stubLimiter{err: ErrRateLimited}
	var failovers int
	f := &Failover{Primary: primary, Secondary: secondary, OnFailover: func(error) { failovers++ }}

	if err := f.Allow(context.Background(), "k"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected secondary decision, got %v", err)
	}
	if failovers != 1 || secondary.calls != 1 {
		t.Fatalf("expected one failover, got %d/%d", failovers, secondary.calls)
	}

	primary.err = ErrRateLimited
	secondary.calls = 0
	if err := f.Allow(context.Background(), "k"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected primary decision, got %v", err)
	}
	if secondary.calls != 0 {
		t.Fatal("secondary must not be consulted while primary is healthy")
	}

	var nilFailover *Failover
	if err := nilFailover.Allow(context.Background(), "k"); err != nil {
		t.Fatalf("nil failover must allow, got %v", err)
	}
}
