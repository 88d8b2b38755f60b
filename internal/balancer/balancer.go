package balancer

import (
	"sort"
	"sync"

	"lbgateway/internal/config"
)

// LoadBalancer holds the current fleet, the active strategy, and the
// round-robin family's cursor. Fleet mutation (UpdateFleet,
// SetStrategy) and cursor-advancing selection all take the same
// exclusive lock, so readers always observe a consistent
// (fleet, cursor) pair.
type LoadBalancer struct {
	mu       sync.RWMutex
	fleet    []*Backend
	byID     map[string]*Backend
	strategy config.Strategy
	cursor   int
}

// New constructs an empty load balancer defaulting to round robin.
func New() *LoadBalancer {
	return &LoadBalancer{
		byID:     make(map[string]*Backend),
		strategy: config.RoundRobin,
	}
}

// UpdateFleet rebuilds the fleet from a fresh backend-config map.
// Existing live-connection counters are NOT preserved — fleet updates
// are administrative events, and a new Backend record is constructed
// for every id with a zeroed counter. Iteration order of the incoming
// map is irrelevant: the fleet is always rebuilt sorted by id
// ascending so round robin is reproducible across restarts.
func (lb *LoadBalancer) UpdateFleet(backends map[string]config.BackendConfig) {
	ids := make([]string, 0, len(backends))
	for id := range backends {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fleet := make([]*Backend, 0, len(ids))
	byID := make(map[string]*Backend, len(ids))
	for _, id := range ids {
		cfg := backends[id]
		b := &Backend{
			ID:           id,
			URL:          cfg.URL,
			Weight:       cfg.Weight,
			hasRateLimit: cfg.RateLimit != nil,
		}
		b.currentWeight.Store(0)
		fleet = append(fleet, b)
		byID[id] = b
	}

	lb.mu.Lock()
	lb.fleet = fleet
	lb.byID = byID
	lb.cursor = 0
	lb.mu.Unlock()
}

// SetStrategy atomically swaps the active selection strategy.
func (lb *LoadBalancer) SetStrategy(s config.Strategy) {
	lb.mu.Lock()
	lb.strategy = s
	lb.mu.Unlock()
}

// Strategy returns the active selection strategy.
func (lb *LoadBalancer) Strategy() config.Strategy {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.strategy
}

// Len reports the current fleet size.
func (lb *LoadBalancer) Len() int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return len(lb.fleet)
}

// Select returns a Backend per the active strategy, or nil if the
// fleet is empty. Round robin's cursor always advances exactly once
// per call and is never put back, even for backends rejected further
// down the pipeline.
func (lb *LoadBalancer) Select() *Backend {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if len(lb.fleet) == 0 {
		return nil
	}

	switch lb.strategy {
	case config.WeightedRoundRobin:
		return lb.selectWeightedLocked()
	case config.LeastConnections:
		return lb.selectLeastConnectionsLocked()
	default:
		return lb.selectRoundRobinLocked()
	}
}

func (lb *LoadBalancer) selectRoundRobinLocked() *Backend {
	b := lb.fleet[lb.cursor]
	lb.cursor = (lb.cursor + 1) % len(lb.fleet)
	return b
}

// selectWeightedLocked implements smoothed weighted round robin
// (Nginx-style): each backend's currentWeight is bumped by its own
// weight every round; the backend with the highest currentWeight wins
// and has the total fleet weight subtracted back off. This converges
// to each backend being chosen with frequency proportional to its
// weight, with no starvation of any positive-weight backend.
func (lb *LoadBalancer) selectWeightedLocked() *Backend {
	var total int64
	var best *Backend
	for _, b := range lb.fleet {
		w := int64(b.Weight)
		total += w
		next := b.currentWeight.Add(w)
		if best == nil || next > best.currentWeight.Load() {
			best = b
		}
	}
	if best == nil {
		return nil
	}
	best.currentWeight.Add(-total)
	lb.cursor = (lb.cursor + 1) % len(lb.fleet)
	return best
}

func (lb *LoadBalancer) selectLeastConnectionsLocked() *Backend {
	best := lb.fleet[0]
	bestCount := best.LiveConnections()
	for _, b := range lb.fleet[1:] {
		if c := b.LiveConnections(); c < bestCount {
			best = b
			bestCount = c
		}
	}
	return best
}

// IncrementConnections locates the backend by id and increments its
// live-connection counter. A missing id is a silent no-op — the fleet
// may have been updated between selection and accounting.
func (lb *LoadBalancer) IncrementConnections(id string) {
	lb.mu.RLock()
	b, ok := lb.byID[id]
	lb.mu.RUnlock()
	if ok {
		b.liveConnections.Add(1)
	}
}

// DecrementConnections saturating-decrements the named backend's
// counter. Decrementing past zero yields zero.
func (lb *LoadBalancer) DecrementConnections(id string) {
	lb.mu.RLock()
	b, ok := lb.byID[id]
	lb.mu.RUnlock()
	if !ok {
		return
	}
	for {
		cur := b.liveConnections.Load()
		if cur <= 0 {
			return
		}
		if b.liveConnections.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}
