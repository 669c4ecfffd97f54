package prometheus

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_EmptyNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{Subsystem: "unit"}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestNewMetricsCollector_WithProcessMetrics(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", EnableProcessMetrics: true}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Contains(t, scrapeMetrics(t, c), "process_cpu_seconds_total")
}

func TestRegisterCounter(t *testing.T) {
	c := newTestCollector(t)
	counter := c.RegisterCounter("requests_total", "help", "method")
	counter.WithLabelValues("GET").Inc()
	counter.WithLabelValues("GET").Add(2)

	assert.Contains(t, scrapeMetrics(t, c), `test_unit_requests_total{method="GET"} 3`)
}

func TestRegisterCounter_DuplicateReturnsExisting(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("dup_total", "help", "a").WithLabelValues("x").Inc()
	c.RegisterCounter("dup_total", "help", "a").WithLabelValues("x").Inc()

	assert.Contains(t, scrapeMetrics(t, c), `test_unit_dup_total{a="x"} 2`)
}

func TestRegister_TypeMismatchIsNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("shared", "help")
	gauge := c.RegisterGauge("shared", "help")
	assert.IsType(t, noopGaugeVec{}, gauge)
	assert.NotPanics(t, func() { gauge.WithLabelValues().Set(1) })
}

func TestRegisterGauge(t *testing.T) {
	c := newTestCollector(t)
	g := c.RegisterGauge("pending", "help")
	g.WithLabelValues().Set(5)
	g.WithLabelValues().Inc()
	g.WithLabelValues().Dec()
	g.WithLabelValues().Dec()

	assert.Contains(t, scrapeMetrics(t, c), "test_unit_pending 4")
}

func TestRegisterHistogram_DefaultBuckets(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("latency_seconds", "help", nil, "op")
	h.WithLabelValues("read").Observe(0.2)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_latency_seconds_count{op="read"} 1`)
	assert.Contains(t, out, `le="0.25"`)
}

func TestRegister_ConcurrentSafe(t *testing.T) {
	c := newTestCollector(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RegisterCounter("concurrent_total", "help").WithLabelValues().Inc()
		}()
	}
	wg.Wait()
	assert.Contains(t, scrapeMetrics(t, c), "test_unit_concurrent_total 20")
}

func TestMustRegisterAndUnregister(t *testing.T) {
	c := newTestCollector(t)
	custom := prometheus.NewCounter(prometheus.CounterOpts{Name: "custom_total", Help: "help"})
	c.MustRegister(custom)
	custom.Inc()
	assert.Contains(t, scrapeMetrics(t, c), "custom_total 1")

	assert.True(t, c.Unregister(custom))
	assert.NotContains(t, scrapeMetrics(t, c), "custom_total")
}

func TestTimer(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("timed_seconds", "help", nil)
	timer := NewTimer(h.WithLabelValues())
	time.Sleep(time.Millisecond)
	timer.ObserveDuration()

	assert.Contains(t, scrapeMetrics(t, c), "test_unit_timed_seconds_count 1")
}

func TestTimer_NilHistogram(t *testing.T) {
	assert.NotPanics(t, func() { NewTimer(nil).ObserveDuration() })
}
