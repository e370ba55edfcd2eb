package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/game-economy/internal/auth"
)

func newGuardedHandler(t *testing.T, tokens *auth.TokenService) http.Handler {
	t.Helper()
	return RequireAdmin(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, auth.RoleAdmin, claims.Role)
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireAdminAllowsAdminToken(t *testing.T) {
	tokens := auth.NewTokenService("test-secret-key-that-is-long-enough", time.Hour)
	token, _, err := tokens.Generate("admin", auth.RoleAdmin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/items", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	newGuardedHandler(t, tokens).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdminRejectsMissingToken(t *testing.T) {
	tokens := auth.NewTokenService("test-secret-key-that-is-long-enough", time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/v1/items", nil)
	rec := httptest.NewRecorder()

	newGuardedHandler(t, tokens).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminRejectsInvalidToken(t *testing.T) {
	tokens := auth.NewTokenService("test-secret-key-that-is-long-enough", time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/v1/items", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()

	newGuardedHandler(t, tokens).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminRejectsNonAdminRole(t *testing.T) {
	tokens := auth.NewTokenService("test-secret-key-that-is-long-enough", time.Hour)
	token, _, err := tokens.Generate("someone", "player")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/items", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	newGuardedHandler(t, tokens).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
