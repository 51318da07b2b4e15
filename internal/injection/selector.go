package injection

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/jsamuelsen/quote-injection-service/internal/domain"
	"github.com/jsamuelsen/quote-injection-service/internal/ports"
)

// storeName labels store failures that reach callers.
const storeName = "quote-store"

// ShuffleFunc permutes n elements using swap, with the same contract as rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// Selection is the narrowed candidate pool for one request.
type Selection struct {
	Quotes       []domain.Quote
	PoolSize     int
	NoCandidates bool
}

// Selector fetches eligible quotes and picks a bounded random subset.
type Selector struct {
	store   ports.QuoteStore
	shuffle ShuffleFunc
}

// NewSelector creates a selector. A nil shuffle uses math/rand/v2.
// Panics if store is nil.
func NewSelector(store ports.QuoteStore, shuffle ShuffleFunc) *Selector {
	if store == nil {
		panic("injection: quote store is required")
	}

	if shuffle == nil {
		shuffle = rand.Shuffle
	}

	return &Selector{store: store, shuffle: shuffle}
}

// TargetCount is how many quotes to take from a pool: about half of it, but
// never fewer than minQuotes or more than maxQuotes, and never more than the pool holds.
func TargetCount(poolSize, minQuotes, maxQuotes int) int {
	target := max(minQuotes, poolSize/2)
	target = min(max(target, minQuotes), maxQuotes)

	return max(0, min(target, poolSize))
}

// Select queries the store for req and returns a shuffled subset of the pool.
// An empty pool yields NoCandidates rather than an error. A request allowing
// zero quotes never reaches the store.
func (s *Selector) Select(ctx context.Context, req domain.InjectionRequest) (Selection, error) {
	if req.MaxQuotes <= 0 {
		return Selection{Quotes: []domain.Quote{}}, nil
	}

	filter := req.Filter()

	found, err := s.store.FindEligible(ctx, filter)
	if err != nil {
		return Selection{}, queryFailure(ctx, err)
	}

	pool := eligible(found, filter)
	if len(pool) == 0 {
		return Selection{Quotes: []domain.Quote{}, NoCandidates: true}, nil
	}

	target := TargetCount(len(pool), req.MinQuotes, req.MaxQuotes)

	s.shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	return Selection{Quotes: pool[:target], PoolSize: len(pool)}, nil
}

// queryFailure classifies a failed read. A list query has no single entity
// to be missing, so anything but an expired or cancelled request means the
// store could not serve it. The cause is kept in the text for logs only.
func queryFailure(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("find eligible quotes: %w", err)
	case ctx.Err() != nil:
		return fmt.Errorf("find eligible quotes: %w: %v", ctx.Err(), err)
	case domain.IsUnavailable(err):
		return fmt.Errorf("find eligible quotes: %w", err)
	default:
		return fmt.Errorf("find eligible quotes: %w: %v",
			domain.NewUnavailableError(storeName, "quote query failed"), err)
	}
}

// eligible re-applies the store filter so an adapter bug cannot leak
// unmoderated, low-relevance, or duplicate quotes into an article. It always
// returns a fresh slice.
func eligible(found []domain.Quote, filter domain.QuoteFilter) []domain.Quote {
	pool := make([]domain.Quote, 0, min(len(found), filter.Limit))
	seen := make(map[string]struct{}, len(found))

	for _, q := range found {
		if len(pool) == filter.Limit {
			break
		}

		if !q.IsAppropriate || q.RelevanceScore < filter.MinRelevance || q.Validate() != nil {
			continue
		}

		if filter.TopicCategory != nil && (q.TopicCategory == nil || *q.TopicCategory != *filter.TopicCategory) {
			continue
		}

		if _, dup := seen[q.ID]; dup {
			continue
		}

		seen[q.ID] = struct{}{}
		pool = append(pool, q)
	}

	return pool
}
