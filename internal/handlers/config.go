package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"lbgateway/internal/config"
)

type configResponse struct {
	Strategy string                           `json:"strategy"`
	Backends map[string]config.BackendConfig `json:"backends"`
}

// Config returns GET /config: the active strategy (debug rendering)
// and the full backend map from the current snapshot.
func Config(mgr *config.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := mgr.Snapshot()
		resp := configResponse{
			Strategy: fmt.Sprintf("%v", cfg.Strategy),
			Backends: cfg.Backends,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to encode config response", "error", err)
		}
	}
}
