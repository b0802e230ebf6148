package limiters

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const sweepEvery = 1024

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Local keeps a token bucket per key: Limit tokens, refilled evenly across
// Window. Idle buckets are swept periodically.
type Local struct {
	policy Policy
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*localEntry
	calls   int
}

func NewLocal(policy Policy) (*Local, error) {
	if !policy.valid() {
		return nil, fmt.Errorf("local limiter %q: invalid policy", policy.Name)
	}
	return &Local{
		policy:  policy,
		now:     time.Now,
		buckets: make(map[string]*localEntry),
	}, nil
}

func (l *Local) Allow(_ context.Context, key string) error {
	if l == nil {
		return nil
	}
	now := l.now()

	l.mu.Lock()
	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweepLocked(now)
	}
	entry, ok := l.buckets[key]
	if !ok {
		every := l.policy.Window / time.Duration(l.policy.Limit)
		entry = &localEntry{limiter: rate.NewLimiter(rate.Every(every), l.policy.Limit)}
		l.buckets[key] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()

	if !entry.limiter.AllowN(now, 1) {
		return ErrRateLimited
	}
	return nil
}

// sweepLocked drops buckets idle for a full window; they would be full again.
func (l *Local) sweepLocked(now time.Time) {
	for k, e := range l.buckets {
		if now.Sub(e.lastSeen) >= l.policy.Window {
			delete(l.buckets, k)
		}
	}
}
