package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/rs/zerolog/log"
)

// APIKeyHeader carries the shared API key.
const APIKeyHeader = "X-API-Key"

// APIKey requires X-API-Key to match the configured key. Keys are compared by
// SHA-256 digest in constant time. On success the request context carries a
// client label derived from the digest, safe to log.
func APIKey(key string) func(http.Handler) http.Handler {
	want := sha256.Sum256([]byte(key))
	label := "key:" + hex.EncodeToString(want[:4])

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(APIKeyHeader)
			if raw == "" || key == "" {
				writeUnauthorized(w)
				return
			}

			got := sha256.Sum256([]byte(raw))
			if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
				log.Warn().Str("remote_addr", r.RemoteAddr).Msg("auth: invalid api key")
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClient, label)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`))
}
