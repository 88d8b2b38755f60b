package internal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AdminServer runs internal endpoints (metrics, pprof) on a separate
// listener isolated from public proxy traffic.
//
// Benefits over a single listener:
//   - Public traffic cannot reach internal debug tools if a firewall rule
//     is misconfigured
//   - Prometheus can scrape /metrics even if the public port is saturated
//   - pprof is never accidentally exposed to the internet
type AdminServer struct {
	server *http.Server
}

// AdminConfig configures the admin server.
type AdminConfig struct {
	// Addr is the listen address (e.g. ":9090").
	Addr string

	// Registry is the Prometheus registry /metrics serves. Nil disables
	// the endpoint.
	Registry *prometheus.Registry

	// EnablePprof controls whether /debug/pprof/* endpoints are mounted.
	// Gated to non-production.
	EnablePprof bool
}

// NewAdminServer creates an admin server exposing /metrics and,
// optionally, the pprof debug surface.
func NewAdminServer(cfg AdminConfig) *AdminServer {
	mux := http.NewServeMux()

	if cfg.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	if cfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
		mux.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
		mux.Handle("/debug/pprof/block", pprof.Handler("block"))
	}

	return &AdminServer{
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second, // pprof profiles can take time
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Serve starts the admin server. It blocks until the server stops.
func (a *AdminServer) Serve() error {
	slog.Info("admin server starting", "addr", a.server.Addr)
	err := a.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("admin server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the admin server.
func (a *AdminServer) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}
