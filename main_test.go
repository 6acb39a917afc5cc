package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadsite/api/config"
	"leadsite/api/scoring"
	"leadsite/api/store"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		FrontendOrigins:     []string{"http://localhost:3000"},
		JWTSecret:           "secret",
		SessionTTL:          time.Hour,
		AdminAPIKey:         "admin",
		IngestRatePerMinute: 1,
	}
	events := store.NewMemoryEventStore()
	engine, err := scoring.NewEngine(events, nil, scoring.Config{})
	require.NoError(t, err)
	return setupRouter(cfg, routerDeps{
		users:  store.NewUserStore(nil),
		events: events,
		engine: engine,
	})
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestIngestionIsRateLimited(t *testing.T) {
	r := newTestRouter(t)
	body := `{"events":[{"event_type":"page_view","session_id":"s","anon_id":"a","page_path":"/"}]}`

	w := serve(r, httptest.NewRequest(http.MethodPost, "/api/analytics/events", strings.NewReader(body)))
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodPost, "/api/analytics/events", strings.NewReader(body)))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/analytics/events", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := serve(r, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRoutesRequireCredentials(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/analytics/me/interest-summary", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/analytics/admin/insights", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/admin/insights", nil)
	req.Header.Set("X-API-KEY", "admin")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/analytics/anonymous/popularity-summary", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
