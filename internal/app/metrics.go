package app

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/jsamuelsen/quote-injection-service/app"

// Injection outcomes reported on the requests counter.
const (
	OutcomeInjected          = "injected"
	OutcomeNoCandidates      = "no_candidates"
	OutcomeNoInjectionPoints = "no_injection_points"
	OutcomeDisabled          = "disabled"
	OutcomeFailed            = "failed"
)

// Metrics holds the engine's instruments. A nil *Metrics records nothing.
type Metrics struct {
	requests      metric.Int64Counter
	injected      metric.Int64Histogram
	usageFailures metric.Int64Counter
}

// NewMetrics creates the instruments on meter, or on the global meter provider when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	requests, err := meter.Int64Counter(
		"quote_injection.requests",
		metric.WithDescription("Injection requests by outcome"),
	)
	if err != nil {
		return nil, err
	}

	injected, err := meter.Int64Histogram(
		"quote_injection.quotes_injected",
		metric.WithDescription("Quotes placed per article"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 8, 13, 20),
	)
	if err != nil {
		return nil, err
	}

	usageFailures, err := meter.Int64Counter(
		"quote_injection.usage_update_failures",
		metric.WithDescription("Usage counter updates that failed"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requests:      requests,
		injected:      injected,
		usageFailures: usageFailures,
	}, nil
}

// RecordRequest counts one finished request.
func (m *Metrics) RecordRequest(ctx context.Context, outcome string, quotesInjected int) {
	if m == nil {
		return
	}

	m.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	if outcome != OutcomeFailed {
		m.injected.Record(ctx, int64(quotesInjected))
	}
}

// RecordUsageFailure counts one failed usage update.
func (m *Metrics) RecordUsageFailure(ctx context.Context) {
	if m == nil {
		return
	}

	m.usageFailures.Add(ctx, 1)
}
