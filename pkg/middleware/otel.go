package middleware

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/homectl/pkg/registry"
)

const defaultTracerName = "homectl"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "homectl").
	TracerName string

	// Provider is the tracer provider. Default: the global provider.
	Provider trace.TracerProvider

	// Propagator injects trace context into outgoing requests.
	// Default: the global propagator.
	Propagator propagation.TextMapPropagator

	// Filter determines which activations to trace.
	// If nil, all activations are traced.
	Filter func(ev registry.Event) bool

	// AttributeExtractor adds custom attributes to each span.
	AttributeExtractor func(ev registry.Event) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(p trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.Provider = p
	}
}

// WithPropagator sets the propagator used by TraceTransport.
func WithPropagator(p propagation.TextMapPropagator) OTelOption {
	return func(c *OTelConfig) {
		c.Propagator = p
	}
}

// WithEventFilter sets a filter function for activations.
func WithEventFilter(filter func(ev registry.Event) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ev registry.Event) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func newOTelConfig(opts []OTelOption) OTelConfig {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Provider == nil {
		config.Provider = otel.GetTracerProvider()
	}
	if config.Propagator == nil {
		config.Propagator = otel.GetTextMapPropagator()
	}
	return config
}

// OpenTelemetry creates registry middleware that wraps every activation in
// a span. The span's context is passed to the handler, so requests the
// handler issues become child spans.
func OpenTelemetry(opts ...OTelOption) registry.Middleware {
	config := newOTelConfig(opts)
	tracer := config.Provider.Tracer(config.TracerName)

	return registry.MiddlewareFunc(func(ctx context.Context, ev registry.Event, next func(context.Context) error) error {
		if config.Filter != nil && !config.Filter(ev) {
			return next(ctx)
		}

		attrs := []attribute.KeyValue{
			attribute.String("homectl.widget", ev.Target),
			attribute.String("homectl.kind", ev.Kind),
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(ev)...)
		}

		spanCtx, span := tracer.Start(ctx, spanName(ev),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		err := next(spanCtx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	})
}

func spanName(ev registry.Event) string {
	if ev.Kind == "" {
		return "homectl.activate"
	}
	return fmt.Sprintf("homectl.%s", ev.Kind)
}

// TraceTransport wraps rt so that every request runs in a client span and
// carries the trace context in its headers. A nil rt uses
// http.DefaultTransport.
func TraceTransport(rt http.RoundTripper, opts ...OTelOption) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	config := newOTelConfig(opts)
	tracer := config.Provider.Tracer(config.TracerName)

	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		ctx, span := tracer.Start(req.Context(), "HTTP "+req.Method,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("http.request.method", req.Method),
				attribute.String("url.full", req.URL.String()),
			),
		)
		defer span.End()

		req = req.Clone(ctx)
		config.Propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

		resp, err := rt.RoundTrip(req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		if resp.StatusCode >= http.StatusBadRequest {
			span.SetStatus(codes.Error, resp.Status)
		}
		return resp, nil
	})
}
