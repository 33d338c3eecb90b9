package api

import (
	"crypto/subtle"
	"net/http"
)

const apiKeyHeader = "X-API-Key"

// requireAPIKey rejects requests whose X-API-Key header does not match key
// and counts every attempt that carried a key.
func requireAPIKey(key string, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(apiKeyHeader)
			if got == "" {
				unauthorized(w, "Missing X-API-Key header")
				return
			}
			ok := subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1
			metrics.RecordAuthRequest(ok)
			if !ok {
				unauthorized(w, "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `APIKey header="`+apiKeyHeader+`"`)
	respondError(w, http.StatusUnauthorized, message)
}
