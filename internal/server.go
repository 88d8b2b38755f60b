package internal

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Run starts the public HTTP server and blocks until ctx is cancelled.
//
// TLS termination is left to whatever sits in front of this listener
// (Ingress, ALB, sidecar proxy) — the core is a plaintext reverse
// proxy binding to a fixed loopback address.
func Run(ctx context.Context, addr string, handler http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown with a bounded grace period.
	go func() {
		<-ctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", addr)

	err := srv.ListenAndServe()

	if err != nil {
		if err == http.ErrServerClosed {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
