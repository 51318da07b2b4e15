package telemetry

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-injection-service/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/quote-injection-service/telemetry"

	// TraceIDHeader echoes the request's trace ID to the caller.
	TraceIDHeader = "X-Trace-ID"
)

// ServerMetrics records per-route HTTP server instruments.
type ServerMetrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

// NewServerMetrics creates the instruments on meter, or on the global meter
// provider when meter is nil.
func NewServerMetrics(meter metric.Meter) (*ServerMetrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	duration, durErr := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Time to serve a request"), metric.WithUnit("s"))
	requests, reqErr := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Requests served, by route and status"))
	inFlight, flightErr := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Requests currently being served"))

	if err := errors.Join(durErr, reqErr, flightErr); err != nil {
		return nil, err
	}

	return &ServerMetrics{duration: duration, requests: requests, inFlight: inFlight}, nil
}

// Handler records the instruments around the rest of the chain.
func (m *ServerMetrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		base := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", c.FullPath()),
		}

		m.inFlight.Add(ctx, 1, metric.WithAttributes(base...))
		defer m.inFlight.Add(ctx, -1, metric.WithAttributes(base...))

		c.Next()

		done := metric.WithAttributes(append(base, attribute.Int("http.status_code", c.Writer.Status()))...)
		m.duration.Record(ctx, time.Since(start).Seconds(), done)
		m.requests.Add(ctx, 1, done)
	}
}

// Middleware returns, in order, the otelgin tracing handler, a handler that
// exposes the trace ID, and the server metrics handler. Register them all:
// engine.Use(telemetry.Middleware(name)...). When the instruments cannot be
// created the metrics handler is left out and the error goes to otel.Handle.
func Middleware(serviceName string) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{otelgin.Middleware(serviceName), exposeTraceID}

	m, err := NewServerMetrics(nil)
	if err != nil {
		otel.Handle(err)
		return chain
	}

	return append(chain, m.Handler())
}

// exposeTraceID sets X-Trace-ID before the handler writes anything and adds
// trace_id and span_id to the request logger.
func exposeTraceID(c *gin.Context) {
	sc := trace.SpanFromContext(c.Request.Context()).SpanContext()
	if !sc.HasTraceID() {
		return
	}

	traceID := sc.TraceID().String()
	c.Header(TraceIDHeader, traceID)
	ctx := logging.WithTraceID(c.Request.Context(), traceID)
	ctx = logging.With(ctx, slog.String("span_id", sc.SpanID().String()))
	c.Request = c.Request.WithContext(ctx)
}
