package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"expertmarket/internal/domain"
	"expertmarket/internal/token"
)

// Authenticator verifies the Authorization bearer credential and installs
// the principal on the request context. Requests without a valid credential
// get a 401 with a fixed message; verification failures are never echoed
// back to the client.
func Authenticator(tokens *token.IdentityService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				raw := strings.TrimPrefix(auth, "Bearer ")
				if p, ok := tokens.Verify(raw); ok {
					next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), p)))
					return
				}
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"code":    http.StatusUnauthorized,
				"message": "unauthorized: provide a valid bearer token",
			})
		})
	}
}
