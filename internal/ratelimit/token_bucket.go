package ratelimit

import (
	"sync"
	"time"
)

// One token is represented as 1e9 units so the bucket refills in
// integer arithmetic: a rate of N tokens/sec adds N units per nanosecond.
const unitsPerToken int64 = int64(time.Second)

// TokenBucket is a deterministic token bucket refilling at an integer
// tokens/sec rate against a provided Clock.
//
// It guards the per-connection inbound signaling message rate.
type TokenBucket struct {
	mu sync.Mutex

	clock Clock

	capacity int64 // tokens
	rate     int64 // tokens/sec

	available int64 // units
	last      time.Time
}

func NewTokenBucket(clock Clock, capacity, rate int64) *TokenBucket {
	if clock == nil {
		clock = RealClock{}
	}
	if capacity < 0 {
		capacity = 0
	}
	if rate < 0 {
		rate = 0
	}
	return &TokenBucket{
		clock:     clock,
		capacity:  capacity,
		rate:      rate,
		available: capacity * unitsPerToken,
		last:      clock.Now(),
	}
}

// Allow consumes n tokens if available. n <= 0 always succeeds.
func (b *TokenBucket) Allow(n int64) bool {
	if n <= 0 {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()

	cost := n * unitsPerToken
	if b.available < cost {
		return false
	}
	b.available -= cost
	return true
}

func (b *TokenBucket) refillLocked() {
	now := b.clock.Now()
	if now.Before(b.last) {
		// Clock went backwards; re-anchor without refilling.
		b.last = now
		return
	}
	elapsed := now.Sub(b.last)
	b.last = now

	if elapsed <= 0 || b.rate <= 0 || b.capacity <= 0 {
		return
	}

	max := b.capacity * unitsPerToken

	// rate tokens/sec equals rate units/ns. Clamp to capacity before the
	// multiplication can overflow on long idle periods.
	need := max - b.available
	if need <= 0 {
		b.available = max
		return
	}
	if elapsed.Nanoseconds() >= need/b.rate {
		b.available = max
		return
	}

	b.available += elapsed.Nanoseconds() * b.rate
	if b.available > max {
		b.available = max
	}
}
