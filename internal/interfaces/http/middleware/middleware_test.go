package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/plotinfo/internal/config"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/plotinfo/internal/testutil"
)

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

func TestRequestLogging_Levels(t *testing.T) {
	tests := []struct {
		code  int
		level string
	}{
		{http.StatusOK, "info"},
		{http.StatusNotFound, "warn"},
		{http.StatusBadGateway, "error"},
	}
	for _, tt := range tests {
		log := testutil.NewMockLogger()
		h := RequestLogging(log, DefaultLoggingConfig())(statusHandler(tt.code))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/plots?x=1&y=2", nil))
		assert.Equal(t, 1, log.CountLevel(tt.level), "status %d", tt.code)
	}
}

func TestRequestLogging_SkipsHealthAndScrapes(t *testing.T) {
	log := testutil.NewMockLogger()
	h := RequestLogging(log, DefaultLoggingConfig())(statusHandler(http.StatusOK))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, log.GetMessages())
}

func TestRequestLogging_Slow(t *testing.T) {
	log := testutil.NewMockLogger()
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
	})
	h := RequestLogging(log, LoggingConfig{SlowThreshold: time.Millisecond})(slow)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, log.HasMessage("warn", "HTTP request completed (slow)"))
}

func newTestLimiter(t *testing.T, lookups, downloads int) (*RateLimitMiddleware, *time.Time) {
	t.Helper()
	m := NewRateLimitMiddleware(config.RateLimitConfig{Enabled: true, Window: time.Minute, Lookups: lookups, Downloads: downloads})
	t.Cleanup(m.Stop)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.store.now = func() time.Time { return now }
	return m, &now
}

func serveFrom(h http.Handler, method, path, addr string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, nil)
	r.RemoteAddr = addr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestClassify(t *testing.T) {
	tests := []struct {
		method string
		path   string
		class  EndpointClass
		ok     bool
	}{
		{http.MethodGet, "/api/v1/plots", ClassLookup, true},
		{http.MethodGet, "/api/v1/plots/", ClassLookup, true},
		{http.MethodGet, "/api/v1/plots/CH607735873285", ClassLookup, true},
		{http.MethodPost, "/api/v1/plots/CH607735873285/queries/oereb", ClassLookup, true},
		{http.MethodPost, "/api/v1/plots/CH607735873285/queries/oereb/pdf", ClassDownload, true},
		{http.MethodGet, "/api/v1/plots/CH607735873285/queries/oereb/pdf", ClassLookup, true},
		{http.MethodGet, "/api/v1/plotsearch", "", false},
		{http.MethodGet, "/healthz", "", false},
		{http.MethodGet, "/metrics", "", false},
	}
	for _, tt := range tests {
		class, ok := Classify(httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.ok, ok, "%s %s", tt.method, tt.path)
		assert.Equal(t, tt.class, class, "%s %s", tt.method, tt.path)
	}
}

func TestRateLimit_LookupBudgetExceeded(t *testing.T) {
	m, now := newTestLimiter(t, 2, 1)
	h := m.Handler(statusHandler(http.StatusOK))
	path := "/api/v1/plots/CH607735873285"

	first := serveFrom(h, http.MethodGet, path, "192.0.2.1:5000")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, strconv.FormatInt(now.Add(time.Minute).Unix(), 10), first.Header().Get("X-RateLimit-Reset"))

	*now = now.Add(20 * time.Second)
	assert.Equal(t, http.StatusOK, serveFrom(h, http.MethodGet, path, "192.0.2.1:5001").Code)

	*now = now.Add(10 * time.Second)
	third := serveFrom(h, http.MethodGet, path, "192.0.2.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "0", third.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "30", third.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", third.Header().Get("Content-Type"))

	var body limitExceededResponse
	require.NoError(t, json.Unmarshal(third.Body.Bytes(), &body))
	assert.Equal(t, "COMMON_007", body.Code)
	assert.Equal(t, 30, body.RetryAfter)
	assert.Equal(t, "lookup limit of 2 per 1m0s reached", body.Detail)

	// The first hit leaves the window.
	*now = now.Add(31 * time.Second)
	assert.Equal(t, http.StatusOK, serveFrom(h, http.MethodGet, path, "192.0.2.1:5003").Code)
}

func TestRateLimit_DownloadsHaveOwnBudget(t *testing.T) {
	m, _ := newTestLimiter(t, 5, 1)
	h := m.Handler(statusHandler(http.StatusOK))
	pdf := "/api/v1/plots/CH607735873285/queries/oereb/pdf"

	assert.Equal(t, http.StatusOK, serveFrom(h, http.MethodPost, pdf, "192.0.2.1:5000").Code)
	denied := serveFrom(h, http.MethodPost, pdf, "192.0.2.1:5000")
	assert.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.Contains(t, denied.Body.String(), "download limit of 1")

	lookup := serveFrom(h, http.MethodGet, "/api/v1/plots/CH607735873285", "192.0.2.1:5000")
	assert.Equal(t, http.StatusOK, lookup.Code)
	assert.Equal(t, "4", lookup.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, serveFrom(h, http.MethodPost, pdf, "192.0.2.2:5000").Code)
}

func TestRateLimit_OtherPathsUntouched(t *testing.T) {
	m, _ := newTestLimiter(t, 1, 1)
	h := m.Handler(statusHandler(http.StatusOK))
	for i := 0; i < 3; i++ {
		w := serveFrom(h, http.MethodGet, "/readyz", "192.0.2.1:5000")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
	assert.Zero(t, m.store.keys())
}

func TestRateLimit_SweepForgetsIdleClients(t *testing.T) {
	m, now := newTestLimiter(t, 10, 10)
	h := m.Handler(statusHandler(http.StatusOK))
	serveFrom(h, http.MethodGet, "/api/v1/plots", "192.0.2.1:5000")
	serveFrom(h, http.MethodPost, "/api/v1/plots/CH607735873285/queries/oereb/pdf", "192.0.2.1:5000")
	*now = now.Add(30 * time.Second)
	serveFrom(h, http.MethodGet, "/api/v1/plots", "192.0.2.2:5000")
	assert.Equal(t, 3, m.store.keys())

	*now = now.Add(45 * time.Second)
	m.store.sweep()
	assert.Equal(t, 1, m.store.keys())

	m.Stop()
	m.Stop()
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "plotinfo"}, logging.NewNopLogger())
	require.NoError(t, err)
	m := prometheus.NewPlotInfoMetrics(collector)

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/api/v1/plots/{egrid}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	for _, egrid := range []string{"CH607735873285", "CH707735873286"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/plots/"+egrid, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `plotinfo_http_requests_total{method="GET",route="/api/v1/plots/{egrid}",status_code="200"} 2`)
	assert.True(t, strings.Contains(body, `status_code="404"`))
}
