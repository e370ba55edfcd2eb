package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/example/game-economy/internal/auth"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// RequireAdmin validates the bearer token and rejects non-admin callers.
// Catalog mutations are the only guarded surface; reads stay open.
func RequireAdmin(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claims, err := tokens.Validate(tokenString)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if claims.Role != auth.RoleAdmin {
				respondError(w, http.StatusForbidden, "forbidden")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext retrieves validated claims from the request context.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims, ok
}

func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
