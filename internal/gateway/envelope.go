package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorKind enumerates the error taxonomy the pipeline surfaces.
// Values serialize in snake_case, matching the YAML/JSON convention
// the rest of the config schema uses.
type ErrorKind string

const (
	ErrGlobalRateLimitExceeded  ErrorKind = "global_rate_limit_exceeded"
	ErrNoBackendAvailable       ErrorKind = "no_backend_available"
	ErrBackendRateLimitExceeded ErrorKind = "backend_rate_limit_exceeded"
	ErrUndefined                ErrorKind = "undefined"
)

// errorEnvelope is the structured body returned for every 4xx/5xx the
// pipeline produces.
type errorEnvelope struct {
	Error   ErrorKind `json:"error"`
	Status  int       `json:"status"`
	Message string    `json:"message"`
}

// successEnvelope wraps a forwarded response.
type successEnvelope struct {
	Status int         `json:"status"`
	Data   interface{} `json:"data"`
	URL    string      `json:"url"`
}

func writeError(w http.ResponseWriter, kind ErrorKind, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorEnvelope{
		Error:   kind,
		Status:  status,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error envelope", "error", err)
	}
}

func writeSuccess(w http.ResponseWriter, upstreamStatus int, data interface{}, url string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(successEnvelope{
		Status: upstreamStatus,
		Data:   data,
		URL:    url,
	}); err != nil {
		slog.Error("failed to encode success envelope", "error", err)
	}
}

// wrapContent tries to parse the upstream body as JSON; on success it
// wraps the parsed value, otherwise it wraps the raw string.
func wrapContent(body []byte) interface{} {
	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err == nil {
		return map[string]interface{}{"content": parsed}
	}
	return map[string]interface{}{"content": string(body)}
}
