package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxBodyBytes is the request-body cap enforced before forwarding.
const maxBodyBytes = 1 << 20

// forwardResult carries the shaped fields of a successful upstream
// round trip: status code and raw response body.
type forwardResult struct {
	status int
	body   []byte
}

// forward builds and sends the upstream request: same method, same
// (capped) body, every header except Host (case-insensitive), against
// backendURL+upstreamPath. The full response body is read into memory.
func forward(ctx context.Context, client *http.Client, backendURL, upstreamPath string, r *http.Request) (forwardResult, error) {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes+1)
	data, err := io.ReadAll(body)
	if err != nil {
		return forwardResult{}, fmt.Errorf("read request body: %w", err)
	}
	if len(data) > maxBodyBytes {
		return forwardResult{}, fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, backendURL+upstreamPath, strings.NewReader(string(data)))
	if err != nil {
		return forwardResult{}, fmt.Errorf("build upstream request: %w", err)
	}

	for key, values := range r.Header {
		if strings.EqualFold(key, "Host") {
			continue
		}
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return forwardResult{}, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return forwardResult{}, fmt.Errorf("read upstream response: %w", err)
	}

	return forwardResult{status: resp.StatusCode, body: respBody}, nil
}
