// Package ratelimit implements the token-bucket limiter of spec.md §4.7,
// grounded in the shape (per-key mutex-guarded map, lazy bucket creation) of
// the teacher's internal/aggregator/auth_rate_limiter.go sliding-window limiter,
// with the bucket math redone per the spec's continuous-refill formula.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Config is the per-key bucket configuration. RefillRate is tokens/second.
type Config struct {
	Capacity   float64
	RefillRate float64
}

// Result is the outcome of a consume attempt.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // only set when Allowed is false
	ResetAt    time.Time
}

type bucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64
	tokens     float64
	lastRefill time.Time
}

// Limiter holds one bucket per key, created lazily from a default config or a
// per-key override supplied by the operator.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	byKey   map[string]Config
	def     Config
	now     func() time.Time
}

// NewLimiter creates a Limiter using def for any key without an override.
func NewLimiter(def Config) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		byKey:   make(map[string]Config),
		def:     def,
		now:     time.Now,
	}
}

// Configure installs a per-key override, applied the next time the bucket is
// created (existing buckets keep their current config).
func (l *Limiter) Configure(key string, cfg Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byKey[key] = cfg
}

// Consume attempts to take n tokens (default 1 when n<=0) from the bucket for key.
func (l *Limiter) Consume(key string, n float64) Result {
	if n <= 0 {
		n = 1
	}
	b := l.bucketFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillRate)
		b.lastRefill = now
	}

	if b.tokens >= n {
		b.tokens -= n
		resetAt := now
		if b.refillRate > 0 {
			resetAt = now.Add(time.Duration((b.capacity - b.tokens) / b.refillRate * float64(time.Second)))
		}
		return Result{Allowed: true, Remaining: int(b.tokens), ResetAt: resetAt}
	}

	var retryAfter time.Duration
	if b.refillRate > 0 {
		retryAfter = time.Duration(math.Ceil((n-b.tokens)/b.refillRate*1000)) * time.Millisecond
	} else {
		retryAfter = time.Duration(math.MaxInt64) // never refills
	}
	return Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}
}

// Check reports what Consume(key, n) would do, without mutating state.
func (l *Limiter) Check(key string, n float64) Result {
	b := l.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	tokens := b.tokens
	if elapsed > 0 {
		tokens = math.Min(b.capacity, tokens+elapsed*b.refillRate)
	}
	if n <= 0 {
		n = 1
	}
	return Result{Allowed: tokens >= n, Remaining: int(tokens)}
}

// Reset clears the bucket for key, as if newly created.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

func (l *Limiter) bucketFor(key string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		return b
	}
	cfg := l.def
	if override, ok := l.byKey[key]; ok {
		cfg = override
	}
	b := &bucket{
		capacity:   cfg.Capacity,
		refillRate: cfg.RefillRate,
		tokens:     cfg.Capacity,
		lastRefill: l.now(),
	}
	l.buckets[key] = b
	return b
}
