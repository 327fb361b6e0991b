// Package middleware gates HTTP routes on the access token carried in the
// Authorization header.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/userhub/backend/internal/auth/service"
)

type contextKey string

const claimsKey contextKey = "claims"

// AuthMiddleware validates the bearer access token and attaches its claims to
// the request context. No database round-trip happens here: identity and role
// reflect the token's issuance-time snapshot, not necessarily current storage
// state. Routes that need the current record re-fetch it themselves.
func AuthMiddleware(tokenService *service.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token from the Authorization header
			// Expected format: "Bearer <token>"
			var token string
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.Split(authHeader, " ")
				if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
					token = parts[1]
				}
			}

			if token == "" {
				respondUnauthorized(w, "missing or invalid authorization header")
				return
			}

			claims, err := tokenService.Verify(token, service.KindAccess)
			if err != nil {
				// Expired and invalid tokens call for different client behavior
				if errors.Is(err, service.ErrTokenExpired) {
					respondUnauthorized(w, "token expired")
				} else {
					respondUnauthorized(w, "invalid token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims retrieves the decoded token claims from context
func GetClaims(ctx context.Context) (*service.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*service.Claims)
	return claims, ok
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}
