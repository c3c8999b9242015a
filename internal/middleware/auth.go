package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// APIKeyHeader carries the shared daemon key.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests that do not present key in the X-API-Key
// header. An empty key disables the check. Bearer tokens are not accepted
// here since callers forward upstream credentials in their request bodies.
func APIKeyAuth(key string) func(http.Handler) http.Handler {
	if key == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	want := sha256.Sum256([]byte(key))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := sha256.Sum256([]byte(r.Header.Get(APIKeyHeader)))
			if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"code":    http.StatusUnauthorized,
					"message": "unauthorized: provide a valid " + APIKeyHeader + " header",
					"reason":  "Unauthorized",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
