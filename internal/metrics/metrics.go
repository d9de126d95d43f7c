package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ratesconverter"

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	CacheRequestsTotal  *prometheus.CounterVec
	CacheEntries        prometheus.Gauge
	UpstreamRequests    *prometheus.CounterVec
	UpstreamRetries     prometheus.Counter
	FetchOutcomesTotal  *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		CacheRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Cache lookups by cache kind and result",
			},
			[]string{"cache", "result"},
		),

		CacheEntries: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_entries",
				Help:      "Entries held by the in-process cache after the last sweep",
			},
		),

		UpstreamRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Upstream attempts by HTTP status (\"error\" for transport failures)",
			},
			[]string{"status"},
		),

		UpstreamRetries: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_retries_total",
				Help:      "Upstream attempts that were retried",
			},
		),

		FetchOutcomesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_outcomes_total",
				Help:      "Fetcher results by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_class"},
		),

		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
	}
}

func (m *Metrics) CacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequestsTotal.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) CacheSize(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

// UpstreamAttempt records one attempt; status 0 means no response.
func (m *Metrics) UpstreamAttempt(status int) {
	if m == nil {
		return
	}
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	m.UpstreamRequests.WithLabelValues(label).Inc()
}

func (m *Metrics) UpstreamRetry() {
	if m == nil {
		return
	}
	m.UpstreamRetries.Inc()
}

func (m *Metrics) FetchOutcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.FetchOutcomesTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) HTTPRequest(path, method string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(path, method, strconv.Itoa(status/100)+"xx").Inc()
	m.HTTPRequestDuration.WithLabelValues(path, method).Observe(took.Seconds())
}
