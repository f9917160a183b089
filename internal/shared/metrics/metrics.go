package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	BoardMutationsTotal *prometheus.CounterVec
	BoardTxRetriesTotal prometheus.Counter
	HookFailuresTotal   *prometheus.CounterVec
	StreamSubscribers   prometheus.Gauge
}

// New registers the application metrics with reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "taskboard"
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		BoardMutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "board",
				Name:      "mutations_total",
				Help:      "Total number of board mutations by operation and result",
			},
			[]string{"operation", "result"}, // ok, invalid_order, forbidden, not_found, conflict, bad_request, error
		),
		BoardTxRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "board",
				Name:      "tx_retries_total",
				Help:      "Transactions replayed after a serialization failure or deadlock",
			},
		),
		HookFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "handler_failures_total",
				Help:      "After-commit event handler failures",
			},
			[]string{"handler"},
		),
		StreamSubscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "stream_subscribers",
				Help:      "Open change-stream connections",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordMutation counts a board mutation outcome.
func (m *Metrics) RecordMutation(operation, result string) {
	if m == nil {
		return
	}
	m.BoardMutationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordTxRetry counts a replayed transaction.
func (m *Metrics) RecordTxRetry() {
	if m == nil {
		return
	}
	m.BoardTxRetriesTotal.Inc()
}

// RecordHookFailure counts a failed event handler.
func (m *Metrics) RecordHookFailure(handler string) {
	if m == nil {
		return
	}
	m.HookFailuresTotal.WithLabelValues(handler).Inc()
}

// StreamOpened tracks a new change-stream subscriber; the returned func closes it.
func (m *Metrics) StreamOpened() func() {
	if m == nil {
		return func() {}
	}
	m.StreamSubscribers.Inc()
	return m.StreamSubscribers.Dec
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
