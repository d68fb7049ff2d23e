package worker

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// SecretHeader carries the shared secret on API requests. A Bearer
// token in the Authorization header is accepted as an alternative.
const SecretHeader = "X-Evolvd-Secret"

// requireSecret rejects requests that do not present the configured
// shared secret. When no secret is configured the check is a no-op,
// which is the expected mode for localhost-only deployments.
func (s *Service) requireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := s.config.SharedSecret
		if secret == "" {
			next.ServeHTTP(w, r)
			return
		}

		presented := r.Header.Get(SecretHeader)
		if presented == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				presented = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
