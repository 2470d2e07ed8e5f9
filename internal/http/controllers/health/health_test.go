package health

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyz_AllOK(t *testing.T) {
	c := NewController("v1", time.Second)
	c.Register("keys", PingFunc(func(context.Context) error { return nil }))
	c.Register("nil", nil)

	rec := httptest.NewRecorder()
	c.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)
	assert.NotContains(t, rec.Body.String(), `"nil"`)
}

func TestReadyz_PingTimeout(t *testing.T) {
	c := NewController("", 10*time.Millisecond)
	c.Register("slow", PingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	rec := httptest.NewRecorder()
	c.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "deadline exceeded")
}

func TestReadyz_FailureCarriesServiceUnavailable(t *testing.T) {
	c := NewController("", time.Second)
	c.Register("keys", PingFunc(func(context.Context) error { return nil }))
	c.Register("principals", PingFunc(func(context.Context) error { return errBoom }))
	c.Register("cache", PingFunc(func(context.Context) error { return errBoom }))

	rec := httptest.NewRecorder()
	c.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "service_unavailable", body.Error.Code)
	assert.Equal(t, "cache, principals", body.Error.Detail)
	assert.Equal(t, "ok", body.Components["keys"].Status)
}

var errBoom = stderrors.New("boom")
