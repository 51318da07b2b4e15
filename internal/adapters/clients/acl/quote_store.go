package acl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jsamuelsen/quote-injection-service/internal/adapters/clients"
	"github.com/jsamuelsen/quote-injection-service/internal/domain"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/logging"
)

const (
	entityType = "quote"

	quotesPath = "/rest/v1/quotes"
	usagePath  = "/rest/v1/rpc/increment_quote_usage"

	selectColumns = "id,quote_text,author,source_platform,source_url,topic_category," +
		"relevance_score,is_appropriate,times_used,last_used_at"
)

// QuoteStoreConfig configures a QuoteStore.
type QuoteStoreConfig struct {
	// Client must point at the PostgREST root (the host serving /rest/v1).
	Client *clients.Client
	Logger *slog.Logger
}

// QuoteStore implements ports.QuoteStore against a PostgREST API.
type QuoteStore struct {
	BaseAdapter
	logger *slog.Logger
}

// NewQuoteStore creates the adapter. Panics if Client is nil.
func NewQuoteStore(cfg QuoteStoreConfig) *QuoteStore {
	if cfg.Client == nil {
		panic("QuoteStore: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteStore{
		BaseAdapter: NewBaseAdapter(cfg.Client, ""),
		logger:      logger,
	}
}

// APIKeyAuth returns a clients.Config AuthFunc that sends key the way
// Supabase-style PostgREST gateways expect it.
func APIKeyAuth(key string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("apikey", key)
		r.Header.Set("Authorization", "Bearer "+key)
	}
}

// externalQuote is one row as PostgREST serializes it.
type externalQuote struct {
	ID             string     `json:"id"`
	QuoteText      string     `json:"quote_text"`
	Author         *string    `json:"author"`
	SourcePlatform string     `json:"source_platform"`
	SourceURL      *string    `json:"source_url"`
	TopicCategory  *string    `json:"topic_category"`
	RelevanceScore float64    `json:"relevance_score"`
	IsAppropriate  bool       `json:"is_appropriate"`
	TimesUsed      int64      `json:"times_used"`
	LastUsedAt     *time.Time `json:"last_used_at"`
}

type usageRequest struct {
	QuoteID string `json:"quote_id"`
}

// FindEligible lists appropriate quotes at or above the relevance floor,
// best first. Rows that fail validation are dropped with a warning.
func (s *QuoteStore) FindEligible(ctx context.Context, filter domain.QuoteFilter) ([]domain.Quote, error) {
	query := eligibleQuery(filter)

	s.logger.Log(ctx, logging.LevelTrace, "querying quote store", slog.String("query", query.Encode()))

	body, err := s.Get(ctx, quotesPath, query, "find eligible quotes", "")
	if err != nil {
		return nil, err
	}

	rows, err := DecodeResponse[[]externalQuote](body)
	if err != nil {
		return nil, domain.NewUnavailableError(s.ServiceName(), err.Error())
	}

	quotes, rejected := TranslateEach(rows, translateQuote)
	for _, rerr := range rejected {
		s.logger.WarnContext(ctx, "dropping malformed quote row", slog.Any("error", rerr))
	}

	return quotes, nil
}

// RecordUsage calls the increment_quote_usage RPC. The database stamps
// last_used_at with its own clock, so usedAt is only logged.
func (s *QuoteStore) RecordUsage(ctx context.Context, id string, usedAt time.Time) error {
	body, err := s.Post(ctx, usagePath, usageRequest{QuoteID: id}, "record quote usage", id)
	if err != nil {
		return err
	}

	count, err := DecodeResponse[*int64](body)
	if err != nil {
		return domain.NewUnavailableError(s.ServiceName(), err.Error())
	}

	// The function returns NULL when no row matched.
	if count == nil {
		return domain.NewNotFoundError(entityType, id)
	}

	s.logger.Log(ctx, logging.LevelTrace, "quote usage recorded",
		slog.String("quote_id", id),
		slog.Int64("times_used", *count),
		slog.Time("used_at", usedAt),
	)

	return nil
}

// Name implements ports.HealthChecker.
func (s *QuoteStore) Name() string {
	return s.ServiceName()
}

// Check implements ports.HealthChecker. An open circuit reports unhealthy
// without a network call.
func (s *QuoteStore) Check(ctx context.Context) error {
	if retryAt, open := s.Client().CircuitRetryAt(); open {
		return domain.NewUnavailableError(s.ServiceName(),
			"circuit breaker open until "+retryAt.UTC().Format(time.RFC3339))
	}

	body, err := s.Get(ctx, quotesPath, url.Values{"select": {"id"}, "limit": {"1"}}, "health check", "")
	if err != nil {
		return err
	}

	return body.Close()
}

// eligibleQuery builds the PostgREST filter for filter, mirroring the SQL store's ordering.
func eligibleQuery(filter domain.QuoteFilter) url.Values {
	query := url.Values{
		"select":          {selectColumns},
		"is_appropriate":  {"eq.true"},
		"relevance_score": {"gte." + strconv.FormatFloat(filter.MinRelevance, 'f', -1, 64)},
		"order":           {"relevance_score.desc,times_used.asc,id.asc"},
	}

	if filter.TopicCategory != nil {
		query.Set("topic_category", "eq."+quoteFilterValue(*filter.TopicCategory))
	}

	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	return query
}

// quoteFilterValue double-quotes values containing PostgREST reserved characters.
func quoteFilterValue(v string) string {
	if !strings.ContainsAny(v, `,.:()"\ `) {
		return v
	}

	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)

	return `"` + v + `"`
}

func translateQuote(ext *externalQuote) (domain.Quote, error) {
	q := domain.Quote{
		ID:             ext.ID,
		Text:           ext.QuoteText,
		Author:         ext.Author,
		SourcePlatform: domain.Platform(ext.SourcePlatform),
		SourceURL:      ext.SourceURL,
		TopicCategory:  ext.TopicCategory,
		RelevanceScore: ext.RelevanceScore,
		IsAppropriate:  ext.IsAppropriate,
		TimesUsed:      ext.TimesUsed,
		LastUsedAt:     ext.LastUsedAt,
	}

	if err := q.Validate(); err != nil {
		return domain.Quote{}, fmt.Errorf("quote %q: %w", ext.ID, err)
	}

	return q, nil
}
