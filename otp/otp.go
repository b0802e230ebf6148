// Package otp generates short-lived numeric verification codes.
//
// Codes are drawn uniformly from [100000, 999999] using crypto/rand, so every
// code has exactly six digits and no leading zero.
package otp

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"strconv"
	"time"
)

const (
	// DefaultTTL is how long a code stays valid when no TTL is configured.
	DefaultTTL = 10 * time.Minute

	minCode = 100000
	maxCode = 999999
)

// Code is a generated challenge and its expiry.
type Code struct {
	Value     string
	ExpiresAt time.Time
}

// Source produces codes. The engine depends on this rather than on
// [Generator] so tests can supply fixed codes.
type Source interface {
	Generate() (Code, error)
}

// Generator is the production [Source].
type Generator struct {
	ttl    time.Duration
	reader io.Reader
	now    func() time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithReader replaces the randomness source. It must be cryptographically
// secure outside tests.
func WithReader(r io.Reader) Option {
	return func(g *Generator) { g.reader = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator returns a Generator issuing codes valid for ttl.
func NewGenerator(ttl time.Duration, opts ...Option) (*Generator, error) {
	if ttl <= 0 {
		return nil, errors.New("otp ttl must be > 0")
	}
	g := &Generator{
		ttl:    ttl,
		reader: rand.Reader,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.reader == nil || g.now == nil {
		return nil, errors.New("otp generator requires reader and clock")
	}
	return g, nil
}

// TTL returns the configured validity window.
func (g *Generator) TTL() time.Duration { return g.ttl }

func (g *Generator) Generate() (Code, error) {
	n, err := rand.Int(g.reader, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return Code{}, err
	}
	return Code{
		Value:     strconv.FormatInt(n.Int64()+minCode, 10),
		ExpiresAt: g.now().Add(g.ttl).UTC(),
	}, nil
}

// SourceFunc adapts a function to [Source].
type SourceFunc func() (Code, error)

func (f SourceFunc) Generate() (Code, error) { return f() }
