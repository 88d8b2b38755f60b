package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"lbgateway/internal"
	"lbgateway/internal/balancer"
	"lbgateway/internal/config"
	"lbgateway/internal/gateway"
	"lbgateway/internal/monitoring"
	"lbgateway/internal/ratelimit"

	_ "lbgateway/internal/logger"
)

func main() {
	// Top-level panic recovery so a programming error in setup surfaces
	// as a logged fatal error instead of a bare stack trace on stderr.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("fatal panic in main",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			os.Exit(1)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Load and validate environment variables.
	env, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("failed to load environment config: %v", err)
	}

	slog.Info("starting lbgateway",
		"env", env.AppEnv,
		"log_level", env.LogLevel,
		"config_path", env.ConfigPath,
	)

	// 2. Load the balancer configuration from YAML.
	mgr, err := config.NewManager(env.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config from %s: %v", env.ConfigPath, err)
	}
	snap := mgr.Snapshot()

	// 3. Build the core subsystems from the initial snapshot.
	lb := balancer.New()
	lb.UpdateFleet(snap.Backends)
	lb.SetStrategy(snap.Strategy)

	limiter := ratelimit.NewRateLimiter(nil)

	pipeline := gateway.New(mgr, limiter, lb)

	// 4. Wire metrics and the public router.
	promProvider := monitoring.NewPrometheusProvider()
	monitoring.RegisterProvider(promProvider)

	router := internal.NewRouter(mgr, lb, pipeline)

	// 5. Start the admin server (metrics, pprof) on a separate listener
	// from the public proxy surface.
	adminSrv := internal.NewAdminServer(internal.AdminConfig{
		Addr:        env.AdminAddr,
		Registry:    promProvider.Registry(),
		EnablePprof: !env.IsProduction(),
	})

	go func() {
		if err := adminSrv.Serve(); err != nil {
			slog.Error("admin server error", "error", err)
		}
	}()

	// 6. Graceful shutdown on SIGINT/SIGTERM.
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-stopCh
		slog.Info("received shutdown signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("admin server shutdown error", "error", err)
		}

		cancel()
	}()

	// 7. Serve the public surface on the fixed loopback address; TLS
	// termination is left to whatever sits in front of this process.
	internal.Run(ctx, config.GatewayAddr, router)
}
