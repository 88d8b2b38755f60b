package ratelimit

import "sync"

// RateLimiter is a keyed collection of token buckets. Entries are
// created lazily on first Check and are never garbage-collected by the
// limiter itself; an operator wanting eviction calls Remove explicitly.
//
// Check needs to refill and decrement atomically, so the whole
// operation runs under a single exclusive lock rather than a
// read/upgrade split — the critical section is microsecond-scale.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*TokenBucket
	clock   Clock
}

// NewRateLimiter constructs an empty limiter. clock may be nil to use
// the real wall/monotonic clock; tests inject a fake one.
func NewRateLimiter(clock Clock) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		clock:   clock,
	}
}

// Check performs admission for key. If no bucket exists yet, one is
// created with (rps, burst) and those parameters become sticky: a
// later Check for the same key with different rps/burst is silently
// ignored until an explicit Update.
func (r *RateLimiter) Check(key string, requestsPerSecond, burst uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[key]
	if !ok {
		b = NewTokenBucket(requestsPerSecond, burst, r.clock)
		r.buckets[key] = b
	}
	return b.TryAcquire(1)
}

// Update unconditionally replaces the bucket at key with a fresh one at
// full capacity, honoring the new parameters immediately.
func (r *RateLimiter) Update(key string, requestsPerSecond, burst uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets[key] = NewTokenBucket(requestsPerSecond, burst, r.clock)
}

// Remove deletes the bucket at key, if present. The next Check
// recreates it from scratch.
func (r *RateLimiter) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buckets, key)
}

// Len reports the number of distinct keys currently tracked.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}
