// Package ratelimit provides per-key token bucket rate limiting for the
// geotree MCP tools.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is returned by CheckLimit when a tool's bucket is empty.
var ErrRateLimited = errors.New("rate limit exceeded")

// Limiter is a per-key token bucket. Every key starts with a full bucket
// of burst tokens that refills at rate tokens per second. It is safe for
// concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   int
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a limiter with the given rate (tokens/sec) and burst size.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// PerMinute creates a limiter allowing n requests a minute with the given burst.
func PerMinute(n float64, burst int) *Limiter {
	return NewLimiter(n/60.0, burst)
}

// Allow takes a token from key's bucket and reports whether one was available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastCheck: now}
		l.buckets[key] = b
	}
	b.refill(now, l.rate, float64(l.burst))

	if b.tokens < 1.0 {
		return false
	}
	b.tokens--
	return true
}

func (b *bucket) refill(now time.Time, rate, capacity float64) {
	elapsed := now.Sub(b.lastCheck).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = min(b.tokens+rate*elapsed, capacity)
	b.lastCheck = now
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default per-tool limiters. Building is the
// expensive call; reads are cheap and get larger buckets.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"geotree_build":    PerMinute(30, 5),
		"geotree_snapshot": PerMinute(60, 10),
		"geotree_list":     PerMinute(60, 10),
		"geotree_delete":   PerMinute(10, 3),
	}
}

// CheckLimit returns nil if toolName may run now. Tools without a
// configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if !limiter.Allow(toolName) {
		return fmt.Errorf("%w for %s, please try again shortly", ErrRateLimited, toolName)
	}
	return nil
}
