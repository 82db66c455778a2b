// Package middleware provides observability middleware for the widget
// registry and the fragment transport.
//
// This package includes:
//   - Prometheus metrics for widget dispatch and outgoing requests
//   - OpenTelemetry tracing for widget dispatch and outgoing requests
//   - Structured logging of widget dispatch
//
// # Registry middleware
//
//	reg := registry.New(registry.WithMiddleware(
//	    middleware.Logging(logger),
//	    middleware.OpenTelemetry(),
//	    middleware.Prometheus(middleware.WithNamespace("homectl")),
//	))
//
// # Transport middleware
//
// InstrumentTransport and TraceTransport wrap an http.RoundTripper so that
// every partial-update, resync and fragment request is measured and traced:
//
//	client := &http.Client{Transport: middleware.TraceTransport(
//	    middleware.InstrumentTransport(http.DefaultTransport),
//	)}
//
// # Metrics
//
//   - homectl_events_total: widget activations by kind and status
//   - homectl_event_duration_seconds: time spent dispatching an activation
//   - homectl_event_errors_total: failed activations by kind and error category
//   - homectl_outcomes_total: settled interactions by kind and outcome
//   - homectl_requests_total: outgoing requests by method and status code
//   - homectl_request_duration_seconds: outgoing request latency
//   - homectl_feed_states_total: states applied from the live feed
//
// Expose them with promhttp:
//
//	http.Handle("/metrics", promhttp.Handler())
package middleware
