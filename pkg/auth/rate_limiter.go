package auth

import (
	"sync"
	"time"
)

/*
RateLimiter is a token bucket guarding the task-creation endpoint. Tokens
refill continuously at rate/interval; a full bucket is available at start.
*/
type RateLimiter struct {
	mu       sync.Mutex
	rate     float64 // tokens per second
	capacity float64
	tokens   float64
	last     time.Time
}

/*
NewRateLimiter allows rate operations per interval. Rate and interval must
both be positive.
*/
func NewRateLimiter(rate int64, interval time.Duration) *RateLimiter {
	if rate <= 0 || interval <= 0 {
		panic("rate and interval must be positive")
	}

	return &RateLimiter{
		rate:     float64(rate) / interval.Seconds(),
		capacity: float64(rate),
		tokens:   float64(rate),
		last:     time.Now(),
	}
}

/*
Allow consumes one token when available and reports whether the operation
may proceed.
*/
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.last).Seconds()
	rl.last = now

	rl.tokens += elapsed * rl.rate
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}

	if rl.tokens < 1.0 {
		return false
	}

	rl.tokens--
	return true
}
