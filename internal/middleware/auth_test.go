package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arbitra/internal/models"
	"arbitra/internal/repositories/memstore"
	"arbitra/internal/services/apikey"
	"arbitra/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

// behindProxy trusts the in-process test peer as a reverse proxy.
var behindProxy = fiber.Config{
	ProxyHeader:             fiber.HeaderXForwardedFor,
	EnableTrustedProxyCheck: true,
	TrustedProxies:          []string{"0.0.0.0"},
	EnableIPValidation:      true,
}

func newApp(t *testing.T) (*fiber.App, string) {
	t.Helper()
	return newAppWith(t, behindProxy)
}

func newAppWith(t *testing.T, cfg fiber.Config) (*fiber.App, string) {
	t.Helper()
	store := memstore.New()
	keys := apikey.NewService(store.APIKeys())
	business := "0b6f1f8e-5a51-4f0e-9d7a-7d9c1b2a0001"

	raw, _, err := keys.Issue(context.Background(), apikey.IssueInput{
		Email:          "ops@acme.test",
		Role:           models.RoleUser,
		BusinessID:     &business,
		WhitelistedIPs: []string{"203.0.113.7"},
	})
	require.NoError(t, err)

	auth := NewAuthMiddleware(keys, secret)
	app := fiber.New(cfg)
	app.Get("/whoami", auth.Handler, func(c *fiber.Ctx) error {
		actor, err := utils.GetActor(c)
		if err != nil {
			return err
		}
		return c.JSON(actor)
	})
	app.Get("/admin", auth.Handler, RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, raw
}

func do(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthMiddleware_APIKey(t *testing.T) {
	app, raw := newApp(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(APIKeyHeader, raw)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	resp := do(t, app, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var actor models.Actor
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&actor))
	assert.Equal(t, "ops@acme.test", actor.Email)
	assert.Equal(t, models.RoleUser, actor.Role)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	app, raw := newApp(t)

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"no credentials", nil, http.StatusUnauthorized},
		{"unknown key", map[string]string{APIKeyHeader: "ak_nope", "X-Forwarded-For": "203.0.113.7"}, http.StatusUnauthorized},
		{"ip not whitelisted", map[string]string{APIKeyHeader: raw, "X-Forwarded-For": "198.51.100.1"}, http.StatusForbidden},
		{"malformed bearer", map[string]string{"Authorization": "Bearer abc.def.ghi"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			resp := do(t, app, req)
			assert.Equal(t, tt.want, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "error", body["status"])
		})
	}
}

func TestAuthMiddleware_ForwardedForFromUntrustedPeer(t *testing.T) {
	tests := []struct {
		name string
		cfg  fiber.Config
	}{
		{"no proxy configured", fiber.Config{}},
		{"peer not in trusted list", fiber.Config{
			ProxyHeader:             fiber.HeaderXForwardedFor,
			EnableTrustedProxyCheck: true,
			TrustedProxies:          []string{"10.0.0.1"},
			EnableIPValidation:      true,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, raw := newAppWith(t, tt.cfg)

			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set(APIKeyHeader, raw)
			req.Header.Set("X-Forwarded-For", "203.0.113.7")
			assert.Equal(t, http.StatusForbidden, do(t, app, req).StatusCode)
		})
	}
}

func TestAuthMiddleware_BearerAndRoles(t *testing.T) {
	app, _ := newApp(t)

	adminToken, err := SignToken(secret, &models.Actor{ID: "admin-1", Email: "admin@arbitra.test", Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	userToken, err := SignToken(secret, &models.Actor{ID: "user-1", Email: "u@acme.test", Role: models.RoleUser}, time.Hour)
	require.NoError(t, err)
	expired, err := SignToken(secret, &models.Actor{ID: "admin-1", Role: models.RoleAdmin}, -time.Minute)
	require.NoError(t, err)
	forged, err := SignToken("other-secret", &models.Actor{ID: "admin-1", Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"admin passes role guard", adminToken, http.StatusNoContent},
		{"user is forbidden", userToken, http.StatusForbidden},
		{"expired token", expired, http.StatusUnauthorized},
		{"wrong signature", forged, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			assert.Equal(t, tt.want, do(t, app, req).StatusCode)
		})
	}
}
