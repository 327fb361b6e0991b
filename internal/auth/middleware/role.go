package middleware

import (
	"net/http"

	"github.com/userhub/backend/internal/models"
)

// RequireAdmin rejects authenticated requests whose claimed role is not admin.
// It must be mounted after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetClaims(r.Context())
		if !ok {
			respondUnauthorized(w, "missing or invalid authorization header")
			return
		}

		if claims.Role != models.RoleAdmin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"success":false,"message":"admin access required"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
