package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthCheck_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")

	assert.Equal(t, http.StatusOK, resp.Code)
	health := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Components["store"].Status)
}

func TestHealthCheck_FailingComponent(t *testing.T) {
	ts := setupTestServer(t, func(o *Options) {
		o.Checks["search"] = func(context.Context) error { return errProbe }
	})

	resp := ts.api.Get("/health")

	assert.Equal(t, http.StatusOK, resp.Code)
	health := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "healthy", health.Components["store"].Status)
	assert.Equal(t, "unhealthy", health.Components["search"].Status)
	assert.Equal(t, errProbe.Error(), health.Components["search"].Message)
}

func TestRateLimit(t *testing.T) {
	ts := setupTestServer(t, func(o *Options) { o.RateLimit = 2 })

	assert.Equal(t, http.StatusOK, ts.api.Get("/health").Code)
	assert.Equal(t, http.StatusOK, ts.api.Get("/health").Code)

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "60", resp.Header().Get("Retry-After"))
	assert.Equal(t, codeRateLimited, decode[errorBody](t, resp.Body.Bytes()).Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := setupTestServer(t, func(o *Options) { o.CORSOrigins = []string{"https://app.knowyournotes.test"} })

	resp := ts.api.Do(http.MethodOptions, "/api/v1/collections",
		"Origin: https://app.knowyournotes.test",
		"Access-Control-Request-Method: POST",
		"Access-Control-Request-Headers: Authorization",
	)

	assert.Equal(t, "https://app.knowyournotes.test", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRequestIDHeader(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")

	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))
}
