package authapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func devConfig() Config {
	cfg := DefaultConfig()
	cfg.Env = "development"
	cfg.DevUser = DevUser{
		ID:    "dev-user",
		Email: "dev@freemonitor.dev",
		Name:  "Dev",
		Role:  "admin",
	}
	return cfg
}

func TestGuard_RejectsMissingToken(t *testing.T) {
	api := newTestAPI(t, DefaultConfig())

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/me"},
		{http.MethodPost, "/auth/logout"},
		{http.MethodPost, "/auth/logout_all"},
		{http.MethodGet, "/auth/sessions"},
		{http.MethodDelete, "/auth/sessions/some-id"},
	} {
		rec := api.do(route.method, route.path, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
		assert.Equal(t, "unauthenticated", errorCode(t, rec))
	}
}

func TestGuard_RejectsBadToken(t *testing.T) {
	api := newTestAPI(t, DefaultConfig())

	rec := api.do(http.MethodGet, "/me", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", errorCode(t, rec))
}

func TestGuard_PublicRoutesNeedNoToken(t *testing.T) {
	api := newTestAPI(t, DefaultConfig())

	rec := api.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "e2e@freemonitor.dev", "password": "123456",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_refresh_token", errorCode(t, rec))
}

func TestGuard_DevBypassInDevelopment(t *testing.T) {
	api := newTestAPI(t, devConfig())

	rec := api.do(http.MethodGet, "/me", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp meResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "dev-user", resp.User.ID)
	assert.Equal(t, "dev@freemonitor.dev", resp.User.Email)
}

func TestGuard_DevBypassCoversFailedVerification(t *testing.T) {
	api := newTestAPI(t, devConfig())

	// A stale or malformed token in development still resolves to the
	// DevUser instead of locking the developer out.
	rec := api.do(http.MethodGet, "/me", "not-a-jwt", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp meResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "dev-user", resp.User.ID)
}

func TestGuard_ValidTokenWinsOverDevBypass(t *testing.T) {
	api := newTestAPI(t, devConfig())
	pair := api.login(t, "e2e@freemonitor.dev", "123456")

	rec := api.do(http.MethodGet, "/me", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp meResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, api.user.ID, resp.User.ID)
}

func TestGuard_NoBypassOutsideDevelopment(t *testing.T) {
	cfg := devConfig()
	cfg.Env = "staging"
	api := newTestAPI(t, cfg)

	rec := api.do(http.MethodGet, "/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", errorCode(t, rec))
}

func TestGuard_NoBypassWithoutDevUser(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Env = "development"
	api := newTestAPI(t, cfg)

	rec := api.do(http.MethodGet, "/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
