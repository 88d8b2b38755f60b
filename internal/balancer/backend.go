// Package balancer holds the live backend fleet and implements the three
// selection strategies the gateway supports: round robin, weighted round
// robin, and least connections.
//
// The fleet, cursor, and strategy sit behind a single sync.RWMutex;
// each backend's live-connection count is a separate atomic.Int64 so a
// least-connections scan never blocks concurrent accounting.
package balancer

import "sync/atomic"

// Backend is the runtime record for one upstream origin. Identity and
// weight are immutable after construction; liveConnections is the only
// field the pipeline mutates, always through the owning LoadBalancer.
type Backend struct {
	ID     string
	URL    string
	Weight uint32

	liveConnections atomic.Int64

	// currentWeight is the smoothed-weighted-round-robin scheduling
	// state (Nginx-style): incremented by Weight every selection round,
	// decremented by the total effective weight when chosen.
	currentWeight atomic.Int64

	hasRateLimit bool
}

// LiveConnections returns the current live-connection count.
func (b *Backend) LiveConnections() int64 {
	return b.liveConnections.Load()
}

// HasRateLimit reports whether this backend was configured with a
// per-backend rate limit spec.
func (b *Backend) HasRateLimit() bool {
	return b.hasRateLimit
}
