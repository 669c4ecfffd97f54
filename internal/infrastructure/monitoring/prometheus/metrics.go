package prometheus

import (
	"strconv"
	"time"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeEmpty   = "empty"
)

// PlotInfoMetrics holds the plot-info metric set. A nil *PlotInfoMetrics is
// valid and records nothing.
type PlotInfoMetrics struct {
	LookupsTotal        CounterVec
	QueryFetchesTotal   CounterVec
	PDFDownloadsTotal   CounterVec
	PendingDownloads    GaugeVec
	RemoteCallDuration  HistogramVec
	CacheHitsTotal      CounterVec
	CacheMissesTotal    CounterVec
	EventsTotal         CounterVec
	AggregationDuration HistogramVec
	MapEffectsTotal     CounterVec
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
}

var (
	DefaultRemoteDurationBuckets = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultAggregationBuckets    = []float64{.0001, .0005, .001, .005, .01, .05, .1}
)

// NewPlotInfoMetrics registers the metric set on collector.
func NewPlotInfoMetrics(collector MetricsCollector) *PlotInfoMetrics {
	return &PlotInfoMetrics{
		LookupsTotal:        collector.RegisterCounter("lookups_total", "Plot lookups", "mode", "outcome"),
		QueryFetchesTotal:   collector.RegisterCounter("query_fetches_total", "Info query fetches", "query", "outcome"),
		PDFDownloadsTotal:   collector.RegisterCounter("pdf_downloads_total", "PDF downloads", "outcome"),
		PendingDownloads:    collector.RegisterGauge("pending_downloads", "PDF downloads in flight"),
		RemoteCallDuration:  collector.RegisterHistogram("remote_call_duration_seconds", "Plot-info service call duration", DefaultRemoteDurationBuckets, "operation"),
		CacheHitsTotal:      collector.RegisterCounter("cache_hits_total", "Cache hits", "cache"),
		CacheMissesTotal:    collector.RegisterCounter("cache_misses_total", "Cache misses", "cache"),
		EventsTotal:         collector.RegisterCounter("events_total", "Orchestrator events applied", "event"),
		AggregationDuration: collector.RegisterHistogram("aggregation_duration_seconds", "Theme aggregation duration", DefaultAggregationBuckets),
		MapEffectsTotal:     collector.RegisterCounter("map_effects_total", "Map effects applied", "kind"),
		HTTPRequestsTotal:   collector.RegisterCounter("http_requests_total", "API requests", "method", "route", "status_code"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds", "API request duration", nil, "method", "route"),
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// RecordLookup counts a plot lookup. An empty successful lookup is
// recorded as OutcomeEmpty.
func (m *PlotInfoMetrics) RecordLookup(mode string, plots int, err error, duration time.Duration) {
	if m == nil {
		return
	}
	o := outcome(err)
	if err == nil && plots == 0 {
		o = OutcomeEmpty
	}
	m.LookupsTotal.WithLabelValues(mode, o).Inc()
	m.RemoteCallDuration.WithLabelValues("lookup_" + mode).Observe(duration.Seconds())
}

// RecordQuery counts an info query fetch.
func (m *PlotInfoMetrics) RecordQuery(query string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.QueryFetchesTotal.WithLabelValues(query, outcome(err)).Inc()
	m.RemoteCallDuration.WithLabelValues("query").Observe(duration.Seconds())
}

// RecordDownload counts a finished PDF download.
func (m *PlotInfoMetrics) RecordDownload(err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.PDFDownloadsTotal.WithLabelValues(outcome(err)).Inc()
	m.RemoteCallDuration.WithLabelValues("download").Observe(duration.Seconds())
}

// SetPending publishes the size of the pending download set.
func (m *PlotInfoMetrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingDownloads.WithLabelValues().Set(float64(n))
}

// RecordCacheAccess counts a cache hit or miss.
func (m *PlotInfoMetrics) RecordCacheAccess(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordEvent counts an applied orchestrator event.
func (m *PlotInfoMetrics) RecordEvent(name string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(name).Inc()
}

// RecordMapEffect counts a map effect handed to the map collaborator.
func (m *PlotInfoMetrics) RecordMapEffect(kind string) {
	if m == nil {
		return
	}
	m.MapEffectsTotal.WithLabelValues(kind).Inc()
}

// ObserveAggregation records the duration of one theme aggregation.
func (m *PlotInfoMetrics) ObserveAggregation(d time.Duration) {
	if m == nil {
		return
	}
	m.AggregationDuration.WithLabelValues().Observe(d.Seconds())
}

// RecordHTTPRequest records one API request.
func (m *PlotInfoMetrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
