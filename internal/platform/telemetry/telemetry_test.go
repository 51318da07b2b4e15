package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNew_DisabledIsNoop(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	assert.Nil(t, p.traces)
	assert.Nil(t, p.metrics)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProvider_ShutdownFlushesSDKProviders(t *testing.T) {
	p := &Provider{traces: sdktrace.NewTracerProvider(), metrics: sdkmetric.NewMeterProvider()}

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestClampRate(t *testing.T) {
	assert.InDelta(t, 0, clampRate(-0.5), 0)
	assert.InDelta(t, 0.25, clampRate(0.25), 0)
	assert.InDelta(t, 1, clampRate(3), 0)
}

func TestServerMetrics_Handler(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewServerMetrics(provider.Meter("test"))
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(m.Handler())
	engine.POST("/inject-quotes", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	for range 2 {
		engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/inject-quotes", nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := make(map[string]metricdata.Aggregation)
	for _, md := range rm.ScopeMetrics[0].Metrics {
		byName[md.Name] = md.Data
	}

	requests, ok := byName["http.server.requests"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, requests.DataPoints, 1)
	assert.Equal(t, int64(2), requests.DataPoints[0].Value)

	status, ok := requests.DataPoints[0].Attributes.Value("http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusBadRequest), status.AsInt64())

	route, _ := requests.DataPoints[0].Attributes.Value("http.route")
	assert.Equal(t, "/inject-quotes", route.AsString())

	inFlight, ok := byName["http.server.active_requests"].(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(0), inFlight.DataPoints[0].Value, "every request has finished")

	duration, ok := byName["http.server.request.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Equal(t, uint64(2), duration.DataPoints[0].Count)
}

func TestMiddleware_SetsTraceHeader(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	engine := gin.New()
	engine.Use(Middleware("quote-injection-test")...)

	var handlerTraceID string
	engine.POST("/inject-quotes", func(c *gin.Context) {
		handlerTraceID = c.Writer.Header().Get(TraceIDHeader)
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/inject-quotes", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	traceID := w.Header().Get(TraceIDHeader)
	assert.Len(t, traceID, 32)
	assert.Equal(t, traceID, handlerTraceID, "header is set before the handler runs")
}

func TestMiddleware_NoopTracerSkipsHeader(t *testing.T) {
	engine := gin.New()
	engine.Use(Middleware("quote-injection-test")...)
	engine.GET("/-/live", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/-/live", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
