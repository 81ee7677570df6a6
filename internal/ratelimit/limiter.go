// Package ratelimit provides the throttle pacing the healer's copy
// operations.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter hands out permits for rate-bounded operations. Acquire
// suspends the caller until capacity is available or ctx is done. The
// limiter knows nothing about blob semantics; it is purely a throttle.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Config holds the throttle configuration.
type Config struct {
	// Enabled controls whether the throttle is active.
	Enabled bool `yaml:"enabled"`

	// Ops is the maximum number of operations allowed per window.
	Ops int `yaml:"ops"`

	// Window is the duration over which Ops is measured.
	Window time.Duration `yaml:"window"`
}

// DefaultConfig returns the default throttle configuration.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Ops:     100,
		Window:  time.Second,
	}
}

// tokenLimiter implements Limiter with a token bucket. Tokens refill
// at a constant rate (Ops/Window); Acquire waits out the deficit when
// the bucket is empty instead of rejecting, because the healer wants
// backpressure, not errors.
type tokenLimiter struct {
	mu         sync.Mutex
	tokens     float64
	lastUpdate time.Time
	config     Config
}

// NewLimiter creates a token-bucket limiter. The bucket starts full.
func NewLimiter(cfg Config) Limiter {
	return &tokenLimiter{
		tokens:     float64(cfg.Ops),
		lastUpdate: time.Now(),
		config:     cfg,
	}
}

// Unlimited returns a limiter that never blocks.
func Unlimited() Limiter {
	return NewLimiter(Config{Enabled: false})
}

func (l *tokenLimiter) Acquire(ctx context.Context) error {
	if !l.config.Enabled {
		return ctx.Err()
	}

	for {
		wait, ok := l.tryTake()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryTake consumes a token if one is available; otherwise it reports
// how long until the next token accrues.
func (l *tokenLimiter) tryTake() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	capacity := float64(l.config.Ops)
	fillRate := capacity / l.config.Window.Seconds() // tokens per second

	elapsed := now.Sub(l.lastUpdate).Seconds()
	l.tokens = min(capacity, l.tokens+elapsed*fillRate)
	l.lastUpdate = now

	if l.tokens >= 1 {
		l.tokens--
		return 0, true
	}

	deficit := 1 - l.tokens
	wait := time.Duration(deficit / fillRate * float64(time.Second))
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, false
}
