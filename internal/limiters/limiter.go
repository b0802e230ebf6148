package limiters

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrRedisUnavailable = errors.New("rate limiter redis unavailable")
)

// Policy allows Limit requests per key in each Window.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

func (p Policy) valid() bool {
	return p.Name != "" && p.Limit > 0 && p.Window > 0
}

// Limiter admits or refuses one request for key.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// Failover consults Primary and switches to Secondary for any call where the
// primary reports ErrRedisUnavailable.
type Failover struct {
	Primary   Limiter
	Secondary Limiter
	// OnFailover is called with the primary's error each time the secondary
	// is used.
	OnFailover func(error)
}

func (f *Failover) Allow(ctx context.Context, key string) error {
	if f == nil || f.Primary == nil {
		return nil
	}
	err := f.Primary.Allow(ctx, key)
	if err == nil || !errors.Is(err, ErrRedisUnavailable) || f.Secondary == nil {
		return err
	}
	if f.OnFailover != nil {
		f.OnFailover(err)
	}
	return f.Secondary.Allow(ctx, key)
}
