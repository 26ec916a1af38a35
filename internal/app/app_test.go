package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posgate/internal/config"
	"posgate/internal/middleware"
)

const testAdminToken = "test-admin-token"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 5 * time.Second,
		},
		Security: config.SecurityConfig{
			AdminToken: testAdminToken,
			RateLimit:  config.RateLimitConfig{Enabled: false},
		},
		Logging: config.LoggingConfig{Level: "error", Output: "console"},
		Storage: config.StorageConfig{DBPath: ":memory:"},
		Gating:  config.GatingConfig{CompanyEnabled: true},
	}
}

// The prometheus exporter registers collectors globally, so the whole
// end-to-end suite shares a single application instance.
func TestApplicationEndToEnd(t *testing.T) {
	app, err := NewApplicationWithConfig(testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { app.DB.Close() })

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)

	client := srv.Client()

	get := func(t *testing.T, path, token string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set(middleware.AdminTokenHeader, token)
		}
		resp, err := client.Do(req)
		require.NoError(t, err)
		return resp
	}

	post := func(t *testing.T, path, token, body string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set(middleware.AdminTokenHeader, token)
		}
		resp, err := client.Do(req)
		require.NoError(t, err)
		return resp
	}

	decode := func(t *testing.T, resp *http.Response) map[string]interface{} {
		t.Helper()
		defer resp.Body.Close()
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	t.Run("health endpoints", func(t *testing.T) {
		for _, path := range []string{"/health", "/healthz"} {
			resp := get(t, path, "")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "ok", decode(t, resp)["status"])
		}
	})

	t.Run("root banner", func(t *testing.T) {
		resp := get(t, "/", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, AppName, body["service"])
	})

	t.Run("request id header present", func(t *testing.T) {
		resp := get(t, "/health", "")
		resp.Body.Close()
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})

	t.Run("first check-in is pending", func(t *testing.T) {
		resp := post(t, "/api/check", "", `{"company_key": "acme", "device_id": "pos-01", "hostname": "PC-7"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, false, body["authorized"])
		assert.Equal(t, "PENDING", body["status"])
	})

	t.Run("admin without token is rejected", func(t *testing.T) {
		resp := get(t, "/admin/devices?company_key=acme", "")
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp = post(t, "/admin/device/authorize", "wrong-token", `{"company_key": "acme", "device_id": "pos-01"}`)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("admin authorizes device", func(t *testing.T) {
		resp := post(t, "/admin/device/authorize", testAdminToken, `{"company_key": "acme", "device_id": "pos-01"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, decode(t, resp)["ok"])

		resp = post(t, "/api/check", "", `{"company_key": "acme", "device_id": "pos-01"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, true, body["authorized"])
		assert.Equal(t, "OK", body["message"])
	})

	t.Run("blocking the company denies the authorized device", func(t *testing.T) {
		resp := post(t, "/admin/company", testAdminToken, `{"company_key": "acme", "status": "BLOCKED"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = post(t, "/api/check", "", `{"company_key": "acme", "device_id": "pos-01"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, false, body["authorized"])
		assert.Equal(t, "COMPANY_BLOCKED", body["status"])

		resp = post(t, "/admin/company", testAdminToken, `{"company_key": "acme", "status": "ACTIVE"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("admin lists devices", func(t *testing.T) {
		resp := get(t, "/admin/devices?company_key=acme", testAdminToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, "acme", body["company_key"])
		devices, ok := body["devices"].([]interface{})
		require.True(t, ok)
		assert.Len(t, devices, 1)
	})

	t.Run("authorize unknown device is 404", func(t *testing.T) {
		resp := post(t, "/admin/device/authorize", testAdminToken, `{"company_key": "acme", "device_id": "ghost"}`)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("admin panel is public html", func(t *testing.T) {
		resp := get(t, "/admin-panel", "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	})

	t.Run("metrics endpoint exposed", func(t *testing.T) {
		resp := get(t, "/metrics", "")
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("security headers set", func(t *testing.T) {
		resp := get(t, "/health", "")
		resp.Body.Close()
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	})
}

func TestApplicationString(t *testing.T) {
	app := &Application{Config: testConfig()}
	assert.Contains(t, app.String(), AppName)
}
