package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/quote-injection-service/internal/domain"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/logging"
	"github.com/jsamuelsen/quote-injection-service/internal/ports"
)

// Usage tracking defaults.
const (
	DefaultTrackingTimeout     = 5 * time.Second
	DefaultTrackingConcurrency = 4
)

// ErrTrackerClosed is returned by Shutdown when called twice.
var ErrTrackerClosed = errors.New("usage tracker already shut down")

// UsageTrackerConfig configures a UsageTracker.
type UsageTrackerConfig struct {
	Store       ports.QuoteStore
	Logger      *slog.Logger
	Metrics     *Metrics
	Timeout     time.Duration
	Concurrency int
	Now         func() time.Time
}

// UsageTracker bumps usage counters for placed quotes without holding up the
// response. Each quote is updated independently; failures are logged and counted,
// never retried, and never surfaced to the caller.
type UsageTracker struct {
	store       ports.QuoteStore
	logger      *slog.Logger
	metrics     *Metrics
	timeout     time.Duration
	concurrency int
	now         func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewUsageTracker creates a tracker. Panics if Store is nil.
func NewUsageTracker(cfg UsageTrackerConfig) *UsageTracker {
	if cfg.Store == nil {
		panic("usage tracker: store is required")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTrackingTimeout
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultTrackingConcurrency
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &UsageTracker{
		store:       cfg.Store,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		now:         cfg.Now,
	}
}

// Track schedules usage updates for quotes and returns immediately. The updates
// outlive ctx cancellation but keep its values (logger, trace) for correlation.
// Calls after Shutdown are dropped.
func (t *UsageTracker) Track(ctx context.Context, quotes []domain.Quote) {
	if len(quotes) == 0 {
		return
	}

	ids := make([]string, len(quotes))
	for i, q := range quotes {
		ids[i] = q.ID
	}

	logger, ok := logging.Lookup(ctx)
	if !ok {
		logger = t.logger
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		logger.WarnContext(ctx, "usage tracker closed, dropping usage updates", slog.Int("quotes", len(ids)))
		return
	}

	t.wg.Add(1)

	go func() {
		defer t.wg.Done()
		t.record(context.WithoutCancel(ctx), logger, ids)
	}()
}

// record performs the updates and returns how many failed.
func (t *UsageTracker) record(ctx context.Context, logger *slog.Logger, ids []string) int {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	usedAt := t.now().UTC()

	errs := ForEachPartial(ctx, t.concurrency, ids, func(ctx context.Context, id string) error {
		return t.store.RecordUsage(ctx, id, usedAt)
	})

	failed := 0

	for i, err := range errs {
		if err == nil {
			continue
		}

		failed++

		logger.WarnContext(ctx, "failed to record quote usage",
			slog.String("quote_id", ids[i]),
			slog.Any("error", err),
		)
		t.metrics.RecordUsageFailure(ctx)
	}

	logger.DebugContext(ctx, "quote usage recorded",
		slog.Int("quotes", len(ids)),
		slog.Int("failed", failed),
	)

	return failed
}

// Shutdown stops accepting work and waits for in-flight updates or ctx, whichever comes first.
func (t *UsageTracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTrackerClosed
	}

	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})

	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for usage updates: %w", ctx.Err())
	}
}
