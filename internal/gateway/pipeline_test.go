package gateway

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lbgateway/internal/balancer"
	"lbgateway/internal/config"
	"lbgateway/internal/ratelimit"
)

func newTestManager(t *testing.T) *config.Manager {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("strategy: RoundRobin\nbackends: {}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return mgr
}

func singleBackendFleet(t *testing.T, url string) *balancer.LoadBalancer {
	t.Helper()
	lb := balancer.New()
	lb.UpdateFleet(map[string]config.BackendConfig{
		"only": {URL: url, Weight: 1},
	})
	return lb
}

func TestPipeline_NoBackendReturns503(t *testing.T) {
	mgr := newTestManager(t)
	lb := balancer.New() // empty fleet
	p := New(mgr, ratelimit.NewRateLimiter(nil), lb)

	req := httptest.NewRequest(http.MethodGet, ProxyPrefix+"/anything", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestPipeline_GlobalRateLimitExceededReturns429(t *testing.T) {
	mgr := newTestManager(t)
	mgr.Update(func(c *config.BalancerConfig) {
		c.GlobalRateLimit = &config.RateLimitSpec{RequestsPerSecond: 1, BurstSize: 1}
	})
	lb := singleBackendFleet(t, "http://unused.invalid")
	p := New(mgr, ratelimit.NewRateLimiter(nil), lb)

	req := httptest.NewRequest(http.MethodGet, ProxyPrefix+"/x", nil)

	rec1 := httptest.NewRecorder()
	p.ServeHTTP(rec1, req)
	if rec1.Code == http.StatusTooManyRequests {
		t.Fatal("first request should be admitted by a fresh bucket")
	}

	rec2 := httptest.NewRecorder()
	p.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429 once the burst of 1 is exhausted", rec2.Code)
	}
}

func TestPipeline_BackendRateLimitExceededReturns429(t *testing.T) {
	mgr := newTestManager(t)
	backendCfg := config.BackendConfig{
		URL:       "http://unused.invalid",
		Weight:    1,
		RateLimit: &config.RateLimitSpec{RequestsPerSecond: 1, BurstSize: 1},
	}
	mgr.Update(func(c *config.BalancerConfig) {
		c.Backends = map[string]config.BackendConfig{"only": backendCfg}
	})

	// The balancer's HasRateLimit flag is captured from the fleet config
	// at UpdateFleet time, independently of the manager snapshot above.
	lb := balancer.New()
	lb.UpdateFleet(map[string]config.BackendConfig{"only": backendCfg})

	p := New(mgr, ratelimit.NewRateLimiter(nil), lb)

	req := httptest.NewRequest(http.MethodGet, ProxyPrefix+"/x", nil)

	rec1 := httptest.NewRecorder()
	p.ServeHTTP(rec1, req)

	rec2 := httptest.NewRecorder()
	p.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 once the per-backend burst is exhausted", rec2.Code)
	}
}

func TestPipeline_SuccessfulForwardWrapsJSONContent(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	mgr := newTestManager(t)
	lb := singleBackendFleet(t, upstream.URL)
	p := New(mgr, ratelimit.NewRateLimiter(nil), lb)

	req := httptest.NewRequest(http.MethodGet, ProxyPrefix+"/hello", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	// The outer HTTP status is always 200 on a completed forward; the
	// real upstream status rides inside the envelope.
	if rec.Code != http.StatusOK {
		t.Fatalf("outer status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"status":201`) {
		t.Fatalf("body = %s, want it to carry the upstream status 201 in the envelope", body)
	}
	if !strings.Contains(body, `"ok":true`) {
		t.Fatalf("body = %s, want the parsed JSON content nested under data.content", body)
	}
}

func TestPipeline_NonJSONUpstreamBodyWrapsAsString(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text"))
	}))
	defer upstream.Close()

	mgr := newTestManager(t)
	lb := singleBackendFleet(t, upstream.URL)
	p := New(mgr, ratelimit.NewRateLimiter(nil), lb)

	req := httptest.NewRequest(http.MethodGet, ProxyPrefix+"/hello", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), `"content":"plain text"`) {
		t.Fatalf("body = %s, want the raw string wrapped verbatim", rec.Body.String())
	}
}

func TestPipeline_ForwardFailureReturns502WithBackendRateLimitKind(t *testing.T) {
	mgr := newTestManager(t)
	// Nothing listens on loopback port 1, so the dial is refused.
	lb := singleBackendFleet(t, "http://127.0.0.1:1")
	p := New(mgr, ratelimit.NewRateLimiter(nil), lb)

	req := httptest.NewRequest(http.MethodGet, ProxyPrefix+"/x", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(ErrBackendRateLimitExceeded)) {
		t.Fatalf("body = %s, want the error kind %q even though the failure happened during forwarding", rec.Body.String(), ErrBackendRateLimitExceeded)
	}
}

func TestPipeline_ConnectionCounterReleasedAfterForward(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	mgr := newTestManager(t)
	lb := singleBackendFleet(t, upstream.URL)
	p := New(mgr, ratelimit.NewRateLimiter(nil), lb)

	req := httptest.NewRequest(http.MethodGet, ProxyPrefix+"/x", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	if got := lb.Select().LiveConnections(); got != 0 {
		t.Fatalf("LiveConnections() after the request completed = %d, want 0", got)
	}
}

func TestClientIdentifier(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"absent", "", "unknown"},
		{"ascii passthrough", "203.0.113.5", "203.0.113.5"},
		{"non-ascii falls back", "203.0.113.5, café", "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("X-Forwarded-For", tc.header)
			}
			if got := clientIdentifier(req); got != tc.want {
				t.Fatalf("clientIdentifier() = %q, want %q", got, tc.want)
			}
		})
	}
}
