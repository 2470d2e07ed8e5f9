package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/jwksguard/internal/cache"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"/v1/whoami", "/v1/whoami"},
		{"/v1/users/12345", "/v1/users/:param"},
		{"/v1/keys/0123456789abcdef01", "/v1/keys/:param"},
		{"/v1/p/2f1c3a9e-1111-4222-8333-444455556666", "/v1/p/:param"},
		{"/healthz?verbose=1", "/healthz"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, normalizePath(tc.in), tc.in)
	}
}

func TestRegisterMetrics_ServesGuardAndHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := RegisterMetrics(MetricsConfig{Registry: reg, Gatherer: reg})
	require.NoError(t, err)

	// idempotente sobre el mismo registry
	_, err = RegisterMetrics(MetricsConfig{Registry: reg, Gatherer: reg})
	require.NoError(t, err)

	app := WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/whoami", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `http_requests_total{method="GET",path="/v1/whoami",status="401"} 1`), body)
}

func TestRegisterMetrics_CacheStats(t *testing.T) {
	c := cache.NewMemory("")
	require.NoError(t, c.Set(context.Background(), "k1", "{}", 0))
	_, _ = c.Get(context.Background(), "k1")
	_, _ = c.Get(context.Background(), "k2")

	reg := prometheus.NewRegistry()
	h, err := RegisterMetrics(MetricsConfig{Registry: reg, Gatherer: reg, Cache: c})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `jwksguard_key_cache_entries{driver="memory"} 1`)
	assert.Contains(t, body, `jwksguard_key_cache_backend_hits_total{driver="memory"} 1`)
	assert.Contains(t, body, `jwksguard_key_cache_backend_misses_total{driver="memory"} 1`)
}
