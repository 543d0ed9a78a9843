package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConsumeWithinCapacity(t *testing.T) {
	l := NewLimiter(Config{Capacity: 2, RefillRate: 0})

	r1 := l.Consume("tool:c1:s1", 1)
	require.True(t, r1.Allowed)
	r2 := l.Consume("tool:c1:s1", 1)
	require.True(t, r2.Allowed)
	r3 := l.Consume("tool:c1:s1", 1)
	require.False(t, r3.Allowed)
	require.Greater(t, r3.RetryAfter, time.Duration(0))
}

func TestRefillOverTime(t *testing.T) {
	l := NewLimiter(Config{Capacity: 1, RefillRate: 1})
	current := time.Unix(0, 0)
	l.now = func() time.Time { return current }

	r1 := l.Consume("k", 1)
	require.True(t, r1.Allowed)
	r2 := l.Consume("k", 1)
	require.False(t, r2.Allowed)

	current = current.Add(time.Second)
	r3 := l.Consume("k", 1)
	require.True(t, r3.Allowed)
}

func TestTokensNeverExceedCapacity(t *testing.T) {
	l := NewLimiter(Config{Capacity: 5, RefillRate: 100})
	current := time.Unix(0, 0)
	l.now = func() time.Time { return current }

	l.Consume("k", 1) // create the bucket before time advances

	current = current.Add(time.Hour) // huge elapsed time, refill should clamp
	r := l.Consume("k", 0)
	require.True(t, r.Allowed)
	require.LessOrEqual(t, r.Remaining, 5)
}

func TestConcurrentConsumeCapacityOne(t *testing.T) {
	l := NewLimiter(Config{Capacity: 1, RefillRate: 0})
	var wg sync.WaitGroup
	results := make([]Result, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = l.Consume("k", 1)
		}(i)
	}
	wg.Wait()

	allowed := 0
	for _, r := range results {
		if r.Allowed {
			allowed++
		}
	}
	require.Equal(t, 1, allowed)
}
