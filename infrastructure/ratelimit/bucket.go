package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket paces REST calls to one exchange. Capacity is the burst
// allowance; rate is tokens per second.
type TokenBucket struct {
	mu       sync.Mutex
	capacity int
	tokens   float64
	rate     float64
	last     time.Time
}

func NewTokenBucket(capacity int, rate float64) *TokenBucket {
	return &TokenBucket{
		capacity: capacity,
		tokens:   float64(capacity),
		rate:     rate,
		last:     time.Now(),
	}
}

// Allow consumes a token if one is available.
func (b *TokenBucket) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(now)
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is consumed.
func (b *TokenBucket) Wait() {
	for !b.Allow(time.Now()) {
		time.Sleep(b.retryInterval())
	}
}

func (b *TokenBucket) retryInterval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rate <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / b.rate)
}

func (b *TokenBucket) refill(now time.Time) {
	dt := now.Sub(b.last).Seconds()
	b.last = now
	b.tokens += b.rate * dt
	if b.tokens > float64(b.capacity) {
		b.tokens = float64(b.capacity)
	}
}
