// Package handlers implements the gateway's two introspection
// endpoints: GET /health and GET /config.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"lbgateway/internal/balancer"
	"lbgateway/internal/config"
)

type healthResponse struct {
	Status        string `json:"status"`
	BackendsCount int    `json:"backends_count"`
	Strategy      string `json:"strategy"`
}

// Health returns GET /health: status, current backend count, and the
// debug rendering of the active strategy.
func Health(mgr *config.Manager, lb *balancer.LoadBalancer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:        "healthy",
			BackendsCount: lb.Len(),
			Strategy:      fmt.Sprintf("%v", lb.Strategy()),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to encode health response", "error", err)
		}
	}
}
