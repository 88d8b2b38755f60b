package middlewares

import (
	"net/http"
	"time"
)

// SecurityHeaders adds baseline HTTP security headers to every response.
// The gateway has no browser-facing UI, so only the headers relevant to
// a pure JSON API are set.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME-type sniffing.
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// This service is an API — it should never be framed.
		w.Header().Set("X-Frame-Options", "DENY")

		// No-cache headers across the set proxies/CDNs actually honor.
		w.Header().Set("Cache-Control", "no-cache, private, max-age=0")
		w.Header().Set("Expires", time.Unix(0, 0).Format(time.RFC1123))
		w.Header().Set("Pragma", "no-cache")

		next.ServeHTTP(w, r)
	})
}
