package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/syncmind/syncmind-api/internal/handler"
)

func TestHealthAndReadiness(t *testing.T) {
	env := setupApp(t)

	resp, body := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "SyncMind Test", resp.Header.Get("X-Application"))
	var health handler.HealthResponse
	decodeData(t, body, &health)
	require.Equal(t, "ok", health.Status)

	resp, body = env.do(t, http.MethodGet, "/api/v1/ready", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body.Message)
	decodeData(t, body, &health)
	require.Equal(t, "ok", health.Checks["database"])
	require.NotContains(t, health.Checks, "redis")

	resp, _ = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestErrorEnvelopeCarriesCorrelationID(t *testing.T) {
	env := setupApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/teacher/assignments", nil)
	req.Header.Set("X-Correlation-ID", "trace-teacher-01")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "trace-teacher-01", resp.Header.Get("X-Correlation-ID"))

	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.False(t, body.Success)
	require.Equal(t, "trace-teacher-01", body.CorrelationID)
}
