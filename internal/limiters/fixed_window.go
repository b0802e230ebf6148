package limiters

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// FixedWindow is a Redis counter per key that expires one window after the
// first hit of the window.
type FixedWindow struct {
	redis  redis.UniversalClient
	policy Policy
}

func NewFixedWindow(redisClient redis.UniversalClient, policy Policy) (*FixedWindow, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("fixed window %q: redis client required", policy.Name)
	}
	if !policy.valid() {
		return nil, fmt.Errorf("fixed window %q: invalid policy", policy.Name)
	}
	return &FixedWindow{redis: redisClient, policy: policy}, nil
}

func (l *FixedWindow) Allow(ctx context.Context, key string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	k := l.key(key)

	// INCR and EXPIRE NX commit together, so a counter never outlives its
	// window even when an earlier request failed to set the TTL.
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.policy.Window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	count := incr.Val()

	if count > int64(l.policy.Limit) {
		return ErrRateLimited
	}

	return nil
}

// Reset clears the counter for key.
func (l *FixedWindow) Reset(ctx context.Context, key string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *FixedWindow) key(key string) string {
	return "arl:" + l.policy.Name + ":" + key
}
