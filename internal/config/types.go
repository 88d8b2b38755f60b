// Package config defines the configuration schema loaded from YAML,
// the immutable per-request snapshot the pipeline consumes, and the
// read-copy-update manager that serves it.
package config

// Strategy selects the backend-selection algorithm.
type Strategy string

const (
	RoundRobin         Strategy = "RoundRobin"
	WeightedRoundRobin Strategy = "WeightedRoundRobin"
	LeastConnections   Strategy = "LeastConnections"
)

// RateLimitSpec describes a token-bucket configuration. BurstSize of
// zero (the YAML field absent) is treated as "use RequestsPerSecond as
// the burst" by the rate limiter.
type RateLimitSpec struct {
	RequestsPerSecond uint32 `yaml:"requests_per_second" json:"requests_per_second"`
	BurstSize         uint32 `yaml:"burst_size,omitempty" json:"burst_size,omitempty"`
}

// BackendConfig is the immutable description of one upstream origin as
// read from configuration.
type BackendConfig struct {
	URL        string         `yaml:"url" json:"url"`
	Weight     uint32         `yaml:"weight" json:"weight"`
	RateLimit  *RateLimitSpec `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
}

// BalancerConfig is the full configuration snapshot consumed by the
// pipeline. Backends is keyed by backend id; iteration order over the
// map is never relied on directly — LoadBalancer.UpdateFleet imposes a
// deterministic id-ascending order itself.
type BalancerConfig struct {
	Strategy         Strategy                 `yaml:"strategy" json:"strategy"`
	Backends         map[string]BackendConfig `yaml:"backends" json:"backends"`
	GlobalRateLimit  *RateLimitSpec           `yaml:"global_rate_limit,omitempty" json:"global_rate_limit,omitempty"`
	IsDebug          bool                     `yaml:"is_debug" json:"-"`
}

// Clone returns a deep-enough copy for safe concurrent reads: the map
// and any pointed-to RateLimitSpec values are copied so a caller can
// never observe a mutation made after the snapshot was taken.
func (c BalancerConfig) Clone() BalancerConfig {
	backends := make(map[string]BackendConfig, len(c.Backends))
	for id, b := range c.Backends {
		cp := b
		if b.RateLimit != nil {
			rl := *b.RateLimit
			cp.RateLimit = &rl
		}
		backends[id] = cp
	}
	var global *RateLimitSpec
	if c.GlobalRateLimit != nil {
		g := *c.GlobalRateLimit
		global = &g
	}
	return BalancerConfig{
		Strategy:        c.Strategy,
		Backends:        backends,
		GlobalRateLimit: global,
		IsDebug:         c.IsDebug,
	}
}
