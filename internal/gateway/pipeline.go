// Package gateway implements the proxy request pipeline: parse →
// client identification → global admission → selection → backend
// admission → connection accounting → forward → respond. The
// surrounding recovery/logging/correlation concerns are wired in
// internal/router.go.
package gateway

import (
	"net/http"
	"strings"
	"time"

	"lbgateway/internal/balancer"
	"lbgateway/internal/config"
	"lbgateway/internal/monitoring"
	"lbgateway/internal/ratelimit"
)

// ProxyPrefix is the URL prefix the pipeline strips before forwarding.
const ProxyPrefix = "/proxy"

// Pipeline wires the three core subsystems — rate limiter, load
// balancer, config manager — into a single http.Handler for the
// /proxy/... surface.
type Pipeline struct {
	Manager *config.Manager
	Limiter *ratelimit.RateLimiter
	Balancer *balancer.LoadBalancer
	Client  *http.Client
}

// New constructs a Pipeline with a sensible default upstream client.
// No per-request timeout is imposed beyond what the client's transport
// enforces.
func New(mgr *config.Manager, limiter *ratelimit.RateLimiter, lb *balancer.LoadBalancer) *Pipeline {
	return &Pipeline{
		Manager:  mgr,
		Limiter:  limiter,
		Balancer: lb,
		Client:   &http.Client{},
	}
}

func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// 1. Parse: strip the /proxy prefix.
	upstreamPath := ""
	if strings.HasPrefix(r.URL.Path, ProxyPrefix) {
		upstreamPath = strings.TrimPrefix(r.URL.Path, ProxyPrefix)
	}

	// 2. Client identification: raw X-Forwarded-For value only, no
	// list parsing; "unknown" when absent or non-ASCII.
	clientID := clientIdentifier(r)

	cfg := p.Manager.Snapshot()

	// 3. Global admission.
	if cfg.GlobalRateLimit != nil {
		key := "global_" + clientID
		if !p.Limiter.Check(key, cfg.GlobalRateLimit.RequestsPerSecond, cfg.GlobalRateLimit.BurstSize) {
			monitoring.Inc("proxy_requests_total", "outcome", "global_rate_limited")
			writeError(w, ErrGlobalRateLimitExceeded, http.StatusTooManyRequests, "")
			return
		}
	}

	// 4. Selection.
	backend := p.Balancer.Select()
	if backend == nil {
		monitoring.Inc("proxy_requests_total", "outcome", "no_backend")
		writeError(w, ErrNoBackendAvailable, http.StatusServiceUnavailable, "")
		return
	}

	// 5. Backend admission.
	if backend.HasRateLimit() {
		if bcfg, ok := cfg.Backends[backend.ID]; ok && bcfg.RateLimit != nil {
			if !p.Limiter.Check(backend.ID, bcfg.RateLimit.RequestsPerSecond, bcfg.RateLimit.BurstSize) {
				monitoring.Inc("proxy_requests_total", "outcome", "backend_rate_limited")
				writeError(w, ErrBackendRateLimitExceeded, http.StatusTooManyRequests, "")
				return
			}
		}
	}

	// 6. Account, with guaranteed release on every exit path, including
	// a client disconnecting mid-forward.
	p.Balancer.IncrementConnections(backend.ID)
	defer p.Balancer.DecrementConnections(backend.ID)

	// 7. Forward.
	spanCtx, span := monitoring.Start(r.Context(), "forward", "backend_id", backend.ID)
	result, err := forward(spanCtx, p.Client, backend.URL, upstreamPath, r)
	span.End()
	if err != nil {
		monitoring.Inc("proxy_requests_total", "outcome", "forward_error")
		monitoring.Observe("proxy_forward_duration_seconds", time.Since(start).Seconds(), "outcome", "error")
		// Forward failures reuse backend_rate_limit_exceeded rather than
		// a dedicated upstream-error kind. Semantically wrong but kept
		// for compatibility with clients already matching on it.
		writeError(w, ErrBackendRateLimitExceeded, http.StatusBadGateway, "Failed to forward request: "+err.Error())
		return
	}

	// 9. Shape response.
	monitoring.Inc("proxy_requests_total", "outcome", "forwarded")
	monitoring.Observe("proxy_forward_duration_seconds", time.Since(start).Seconds(), "outcome", "success")

	url := ""
	if cfg.IsDebug {
		url = backend.URL
	}
	writeSuccess(w, result.status, wrapContent(result.body), url)
}

// clientIdentifier reads X-Forwarded-For verbatim, with no proxy-chain
// list parsing, and falls back to "unknown" for an absent or
// non-ASCII value.
func clientIdentifier(r *http.Request) string {
	v := r.Header.Get("X-Forwarded-For")
	if v == "" || !isASCII(v) {
		return "unknown"
	}
	return v
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}
