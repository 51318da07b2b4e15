// Package ports defines the contracts between the injection engine and the
// infrastructure it runs on. Adapters implement them; the app layer consumes them.
//
// Conventions:
//   - context.Context is always the first parameter
//   - only domain types cross the boundary
//   - failures are reported as domain errors (ErrNotFound, ErrUnavailable, ...)
package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen/quote-injection-service/internal/domain"
)

// QuoteStore is the persistent quote pool populated by the external collection feed.
type QuoteStore interface {
	// FindEligible returns appropriate quotes with relevance_score >= filter.MinRelevance,
	// restricted to filter.TopicCategory when set, ordered by relevance descending and
	// capped at filter.Limit. An empty pool is not an error.
	// Returns domain.ErrUnavailable when the store cannot be queried.
	FindEligible(ctx context.Context, filter domain.QuoteFilter) ([]domain.Quote, error)

	// RecordUsage atomically increments times_used for one quote and sets
	// last_used_at to usedAt. Returns domain.ErrNotFound for an unknown id.
	RecordUsage(ctx context.Context, id string, usedAt time.Time) error
}
