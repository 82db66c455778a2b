package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/homectl/internal/errors"
	"github.com/vango-dev/homectl/pkg/registry"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "homectl").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "homectl",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

type metrics struct {
	eventsTotal     *prometheus.CounterVec
	eventDuration   *prometheus.HistogramVec
	eventErrors     *prometheus.CounterVec
	outcomesTotal   *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	feedStates      prometheus.Counter
}

// The metrics are registered once per process; later calls to Prometheus
// or InstrumentTransport share them.
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}
	histogram := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, labels)
	}

	return &metrics{
		eventsTotal:     counter("events_total", "Total number of widget activations", "kind", "status"),
		eventDuration:   histogram("event_duration_seconds", "Widget activation dispatch duration in seconds", "kind"),
		eventErrors:     counter("event_errors_total", "Total number of failed widget activations", "kind", "error_type"),
		outcomesTotal:   counter("outcomes_total", "Settled widget interactions by outcome", "kind", "outcome"),
		requestsTotal:   counter("requests_total", "Outgoing fragment service requests", "method", "code"),
		requestDuration: histogram("request_duration_seconds", "Outgoing fragment service request latency in seconds", "method"),
		feedStates: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "feed_states_total",
			Help:        "Widget states applied from the live feed",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func loadMetrics(opts []MetricsOption) *metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	return globalMetrics
}

// Prometheus creates registry middleware that counts and times widget
// activations.
func Prometheus(opts ...MetricsOption) registry.Middleware {
	m := loadMetrics(opts)

	return registry.MiddlewareFunc(func(ctx context.Context, ev registry.Event, next func(context.Context) error) error {
		kind := ev.Kind
		if kind == "" {
			kind = "unknown"
		}

		start := time.Now()
		err := next(ctx)
		m.eventDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

		status := "success"
		if err != nil {
			status = "error"
			m.eventErrors.WithLabelValues(kind, categorizeError(err)).Inc()
		}
		m.eventsTotal.WithLabelValues(kind, status).Inc()
		return err
	})
}

// categorizeError maps an error to a low-cardinality label.
func categorizeError(err error) string {
	switch {
	case stderrors.Is(err, context.Canceled):
		return "canceled"
	case stderrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	if t, ok := errors.GetTemplate(errors.CodeOf(err)); ok {
		return string(t.Category)
	}
	return "internal"
}

// InstrumentTransport wraps rt so that every request is counted and timed.
// A nil rt uses http.DefaultTransport.
func InstrumentTransport(rt http.RoundTripper, opts ...MetricsOption) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	m := loadMetrics(opts)
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := rt.RoundTrip(req)
		m.requestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

		code := "error"
		if err == nil {
			code = strconv.Itoa(resp.StatusCode)
		}
		m.requestsTotal.WithLabelValues(req.Method, code).Inc()
		return resp, err
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// RecordOutcome records how an interaction of the given widget kind settled
// (committed, reverted, superseded, shown, ...).
func RecordOutcome(kind, outcome string) {
	if m := current(); m != nil {
		m.outcomesTotal.WithLabelValues(kind, outcome).Inc()
	}
}

// RecordFeedState records one state applied from the live feed.
func RecordFeedState() {
	if m := current(); m != nil {
		m.feedStates.Inc()
	}
}

func current() *metrics {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	return globalMetrics
}
