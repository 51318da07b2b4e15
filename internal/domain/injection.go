package domain

import (
	"fmt"
	"math"
	"strings"
)

// Limits applied to every injection request.
const (
	DefaultMinQuotes    = 2
	DefaultMaxQuotes    = 5
	DefaultMinRelevance = 0.6

	// MaxQuotesLimit bounds max_quotes so one request cannot pull an unbounded pool.
	MaxQuotesLimit = 20

	// PoolMultiplier sizes the fetched candidate pool relative to max_quotes.
	PoolMultiplier = 2
)

// Warnings attached to successful responses that degraded gracefully.
const (
	WarningNoCandidates      = "No quotes found matching criteria"
	WarningNoInjectionPoints = "No injection points found in content"
	WarningDisabled          = "Quote injection is disabled"
)

// InjectionDefaults are applied to request fields the caller omitted.
type InjectionDefaults struct {
	MinQuotes    int
	MaxQuotes    int
	MinRelevance float64
}

// DefaultInjectionDefaults returns the built-in defaults.
func DefaultInjectionDefaults() InjectionDefaults {
	return InjectionDefaults{
		MinQuotes:    DefaultMinQuotes,
		MaxQuotes:    DefaultMaxQuotes,
		MinRelevance: DefaultMinRelevance,
	}
}

// InjectionRequest asks the engine to place quotes into one article.
type InjectionRequest struct {
	Content       string
	TopicCategory *string
	MinQuotes     int
	MaxQuotes     int
	MinRelevance  float64
}

// Validate enforces the quota bounds. Field names match the JSON API.
func (r InjectionRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return NewValidationError("article_content", "is required")
	}

	if r.MinQuotes < 0 || r.MinQuotes > MaxQuotesLimit {
		return NewValidationErrorWithValue("min_quotes",
			fmt.Sprintf("must be between 0 and %d", MaxQuotesLimit), r.MinQuotes)
	}

	if r.MaxQuotes < 0 || r.MaxQuotes > MaxQuotesLimit {
		return NewValidationErrorWithValue("max_quotes",
			fmt.Sprintf("must be between 0 and %d", MaxQuotesLimit), r.MaxQuotes)
	}

	if r.MaxQuotes < r.MinQuotes {
		return NewValidationErrorWithValue("max_quotes", "must be greater than or equal to min_quotes", r.MaxQuotes)
	}

	if math.IsNaN(r.MinRelevance) || r.MinRelevance < 0 || r.MinRelevance > 1 {
		return NewValidationErrorWithValue("min_relevance", "must be between 0 and 1", r.MinRelevance)
	}

	return nil
}

// Filter builds the store query for this request.
func (r InjectionRequest) Filter() QuoteFilter {
	return QuoteFilter{
		TopicCategory: r.TopicCategory,
		MinRelevance:  r.MinRelevance,
		Limit:         r.MaxQuotes * PoolMultiplier,
	}
}

// InjectionResult is the outcome of one injection.
// QuotesUsed keeps selection order, not document order.
type InjectionResult struct {
	Content    string
	QuotesUsed []Quote
	Warning    string
}

// QuotesInjected returns how many quotes were placed.
func (r InjectionResult) QuotesInjected() int {
	return len(r.QuotesUsed)
}

// ShortfallWarning reports that fewer quotes than requested could be placed.
func ShortfallWarning(injected, minQuotes int) string {
	return fmt.Sprintf("Only %d of the requested minimum %d quotes could be injected", injected, minQuotes)
}
