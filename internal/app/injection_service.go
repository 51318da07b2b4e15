// Package app orchestrates the quote injection pipeline on top of the ports.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-injection-service/internal/domain"
	"github.com/jsamuelsen/quote-injection-service/internal/injection"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/logging"
	"github.com/jsamuelsen/quote-injection-service/internal/ports"
)

var errCorruptMerge = errors.New("merged content failed verification")

// InjectionServiceConfig configures an InjectionService.
type InjectionServiceConfig struct {
	Store   ports.QuoteStore
	Tracker *UsageTracker
	Flags   ports.FeatureFlags
	Shuffle injection.ShuffleFunc
	Metrics *Metrics
	Logger  *slog.Logger
}

// InjectionService runs validate → select → locate → merge → track → respond.
type InjectionService struct {
	selector *injection.Selector
	tracker  *UsageTracker
	flags    ports.FeatureFlags
	metrics  *Metrics
	executor *Executor
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewInjectionService creates the service. Panics if Store is nil.
// Without a Tracker, one is built on Store with default settings.
func NewInjectionService(cfg InjectionServiceConfig) *InjectionService {
	if cfg.Store == nil {
		panic("injection service: quote store is required")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Tracker == nil {
		cfg.Tracker = NewUsageTracker(UsageTrackerConfig{
			Store:   cfg.Store,
			Logger:  cfg.Logger,
			Metrics: cfg.Metrics,
		})
	}

	return &InjectionService{
		selector: injection.NewSelector(cfg.Store, cfg.Shuffle),
		tracker:  cfg.Tracker,
		flags:    cfg.Flags,
		metrics:  cfg.Metrics,
		executor: NewExecutor(cfg.Logger),
		tracer:   otel.Tracer(instrumentationName),
		logger:   cfg.Logger,
	}
}

// outcome is the merged article plus bookkeeping for logs and metrics.
type outcome struct {
	result   domain.InjectionResult
	label    string
	points   int
	poolSize int
}

// Inject places quotes into req.Content. It fails only on invalid input or a
// store error; every other degradation returns the article with a warning.
func (s *InjectionService) Inject(ctx context.Context, req domain.InjectionRequest) (domain.InjectionResult, error) {
	ctx, span := s.tracer.Start(ctx, "InjectionService.Inject")
	defer span.End()

	result, err := Execute(ctx, s.executor, Operation[domain.InjectionRequest, outcome, outcome, domain.InjectionResult]{
		Name:     "inject_quotes",
		Validate: func(_ context.Context, req domain.InjectionRequest) error { return req.Validate() },
		Perform:  s.perform,
		Verify:   verify,
		Archive:  s.archive,
		Respond:  s.respond,
	}, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if !domain.IsValidation(err) {
			s.metrics.RecordRequest(ctx, OutcomeFailed, 0)
		}

		return domain.InjectionResult{}, err
	}

	span.SetAttributes(attribute.Int("quote_injection.quotes_injected", result.QuotesInjected()))

	return result, nil
}

func (s *InjectionService) perform(ctx context.Context, req domain.InjectionRequest) (outcome, error) {
	unchanged := func(label, warning string) outcome {
		return outcome{
			label: label,
			result: domain.InjectionResult{
				Content:    req.Content,
				QuotesUsed: []domain.Quote{},
				Warning:    warning,
			},
		}
	}

	if s.flags != nil && !s.flags.IsEnabled(ctx, ports.FlagQuoteInjection, true) {
		return unchanged(OutcomeDisabled, domain.WarningDisabled), nil
	}

	selectCtx, span := s.tracer.Start(ctx, "QuoteSelector.Select")
	selection, err := s.selector.Select(selectCtx, req)
	span.SetAttributes(attribute.Int("quote_injection.pool_size", selection.PoolSize))
	span.End()

	if err != nil {
		return outcome{}, fmt.Errorf("select quotes: %w", err)
	}

	if selection.NoCandidates {
		return unchanged(OutcomeNoCandidates, domain.WarningNoCandidates), nil
	}

	points := injection.Locate(req.Content)
	if len(points) == 0 {
		o := unchanged(OutcomeNoInjectionPoints, domain.WarningNoInjectionPoints)
		o.poolSize = selection.PoolSize

		return o, nil
	}

	merged := injection.Merge(req.Content, points, selection.Quotes)

	o := outcome{
		label:    OutcomeInjected,
		points:   len(points),
		poolSize: selection.PoolSize,
		result: domain.InjectionResult{
			Content:    merged.Content,
			QuotesUsed: merged.Used,
		},
	}

	if injected := len(merged.Used); injected < req.MinQuotes {
		o.result.Warning = domain.ShortfallWarning(injected, req.MinQuotes)
	}

	return o, nil
}

// verify refuses to hand back an article whose merge broke the quota or lost a block.
func verify(_ context.Context, req domain.InjectionRequest, o outcome) (outcome, error) {
	used := o.result.QuotesUsed

	if len(used) > req.MaxQuotes {
		return outcome{}, fmt.Errorf("%w: %d quotes placed, max %d", errCorruptMerge, len(used), req.MaxQuotes)
	}

	if len(used) == 0 {
		if o.result.Content != req.Content {
			return outcome{}, fmt.Errorf("%w: content changed without placing quotes", errCorruptMerge)
		}

		return o, nil
	}

	for _, q := range used {
		if !strings.Contains(o.result.Content, `data-quote-id="`+injection.Escape(q.ID)+`"`) {
			return outcome{}, fmt.Errorf("%w: quote %q missing from output", errCorruptMerge, q.ID)
		}
	}

	return o, nil
}

// archive schedules usage tracking; it never fails the request.
func (s *InjectionService) archive(ctx context.Context, _ domain.InjectionRequest, o outcome) error {
	s.tracker.Track(ctx, o.result.QuotesUsed)
	return nil
}

func (s *InjectionService) respond(ctx context.Context, req domain.InjectionRequest, o outcome) (domain.InjectionResult, error) {
	s.metrics.RecordRequest(ctx, o.label, o.result.QuotesInjected())

	s.log(ctx).InfoContext(ctx, "quote injection finished",
		slog.String("outcome", o.label),
		slog.Int("quotes_injected", o.result.QuotesInjected()),
		slog.Int("pool_size", o.poolSize),
		slog.Int("injection_points", o.points),
		slog.Int("min_quotes", req.MinQuotes),
		slog.Int("max_quotes", req.MaxQuotes),
		slog.Int("content_bytes", len(req.Content)),
	)

	return o.result, nil
}

func (s *InjectionService) log(ctx context.Context) *slog.Logger {
	if logger, ok := logging.Lookup(ctx); ok {
		return logger
	}

	return s.logger
}
