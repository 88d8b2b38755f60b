package config

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Manager holds the active BalancerConfig behind a read-copy-update
// pointer. Readers call Snapshot(), which clones the current value, so
// the pipeline never retains a reference across the forwarding
// boundary. An atomic.Pointer suffices in place of a mutex since
// snapshots are always full clones and never mutated in place.
type Manager struct {
	current atomic.Pointer[BalancerConfig]
	path    string
}

// NewManager loads path and returns a Manager serving it.
func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.current.Store(&cfg)
	return m, nil
}

// Snapshot returns a deep clone of the active configuration, safe for
// the caller to read or hold onto without synchronization.
func (m *Manager) Snapshot() BalancerConfig {
	return m.current.Load().Clone()
}

// Reload re-reads the config file from disk and swaps it in
// atomically. There is no background watch loop and cmd/main.go does
// not call Reload; it is an entry point for explicitly triggered reloads.
func (m *Manager) Reload() error {
	cfg, err := Load(m.path)
	if err != nil {
		return err
	}
	m.current.Store(&cfg)
	return nil
}

// Update applies fn to a clone of the active configuration and
// installs the result, without touching the file on disk. Used by
// tests that want to mutate state directly.
func (m *Manager) Update(fn func(*BalancerConfig)) {
	cfg := m.Snapshot()
	fn(&cfg)
	m.current.Store(&cfg)
}

// Load reads and validates a BalancerConfig from a YAML file.
func Load(path string) (BalancerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BalancerConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg BalancerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return BalancerConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return BalancerConfig{}, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate enforces the invariants a BalancerConfig must hold: known
// strategy, non-empty backend URLs, positive weights, and positive
// rate-limit parameters where specified.
func Validate(cfg *BalancerConfig) error {
	switch cfg.Strategy {
	case RoundRobin, WeightedRoundRobin, LeastConnections:
	case "":
		cfg.Strategy = RoundRobin
	default:
		return fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}

	for id, b := range cfg.Backends {
		if b.URL == "" {
			return fmt.Errorf("backend %q: url must not be empty", id)
		}
		if b.Weight == 0 {
			return fmt.Errorf("backend %q: weight must be >= 1", id)
		}
		if b.RateLimit != nil && b.RateLimit.RequestsPerSecond == 0 {
			return fmt.Errorf("backend %q: rate_limit.requests_per_second must be > 0", id)
		}
	}

	if cfg.GlobalRateLimit != nil && cfg.GlobalRateLimit.RequestsPerSecond == 0 {
		return fmt.Errorf("global_rate_limit.requests_per_second must be > 0")
	}

	return nil
}
