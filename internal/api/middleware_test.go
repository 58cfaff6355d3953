package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepwise/prepwise-api/internal/api/handler"
	"github.com/prepwise/prepwise-api/internal/auth"
	"github.com/prepwise/prepwise-api/internal/cache"
	"github.com/prepwise/prepwise-api/internal/config"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimitMiddleware(4, time.Minute)(ok)

	status := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// Burst is half the window allowance.
	assert.Equal(t, http.StatusNoContent, status("10.0.0.1:1234"))
	assert.Equal(t, http.StatusNoContent, status("10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, status("10.0.0.1:5678"))

	assert.Equal(t, http.StatusNoContent, status("10.0.0.2:1234"), "limits are per IP")
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	rec := httptest.NewRecorder()
	RequestLogger(logger)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/alerts", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, buf.String(), "path=/api/v1/alerts")
	assert.Contains(t, buf.String(), "status=204")
}

func TestRouterCORSPreflight(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCache := cache.New(false)
	h := handler.New(handler.Deps{Cache: appCache, Logger: logger})
	cfg := &config.Config{CORSAllowOrigins: []string{"http://localhost:8081"}}
	r := NewRouter(h, auth.NewTokens("s", "prepwise"), cfg, logger)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/alerts", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:8081", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
