package monitoring

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusProvider implements MetricProvider on top of
// github.com/prometheus/client_golang, giving the name/labels
// abstraction in internal/monitoring/metrics.go a real backend instead
// of the no-op default.
//
// Metric families are created lazily per name since the gateway only
// ever emits a handful of fixed metric names (see internal/gateway
// callers); a production system with unbounded name cardinality would
// pre-register these instead.
type PrometheusProvider struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusProvider creates a provider backed by its own registry
// so the admin server can expose exactly these metrics without
// pulling in the Go runtime's default collectors twice.
func NewPrometheusProvider() *PrometheusProvider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return &PrometheusProvider{
		registry:   reg,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry exposes the underlying registry so the admin server can
// mount promhttp.HandlerFor against it.
func (p *PrometheusProvider) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusProvider) Inc(name string, labels map[string]string) {
	c := p.counterFor(name, labels)
	c.With(labels).Inc()
}

func (p *PrometheusProvider) Set(name string, value float64, labels map[string]string) {
	g := p.gaugeFor(name, labels)
	g.With(labels).Set(value)
}

func (p *PrometheusProvider) Observe(name string, value float64, labels map[string]string) {
	h := p.histogramFor(name, labels)
	h.With(labels).Observe(value)
}

func (p *PrometheusProvider) counterFor(name string, labels map[string]string) *prometheus.CounterVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, labelNames(labels))
	p.registry.MustRegister(c)
	p.counters[name] = c
	return c
}

func (p *PrometheusProvider) gaugeFor(name string, labels map[string]string) *prometheus.GaugeVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.gauges[name]; ok {
		return g
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, labelNames(labels))
	p.registry.MustRegister(g)
	p.gauges[name] = g
	return g
}

func (p *PrometheusProvider) histogramFor(name string, labels map[string]string) *prometheus.HistogramVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return h
	}
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Buckets: prometheus.DefBuckets,
	}, labelNames(labels))
	p.registry.MustRegister(h)
	p.histograms[name] = h
	return h
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}
