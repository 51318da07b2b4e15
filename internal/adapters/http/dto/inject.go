package dto

import (
	"strings"
	"unicode/utf8"

	"github.com/jsamuelsen/quote-injection-service/internal/domain"
)

// QuotePreviewLength is how many characters of each placed quote are echoed back.
const QuotePreviewLength = 100

// InjectRequest is the body of POST /inject-quotes. Omitted numeric fields
// take the configured defaults; cross-field rules are checked by the domain.
type InjectRequest struct {
	ArticleContent string   `json:"article_content" validate:"required,notempty"`
	TopicCategory  *string  `json:"topic_category"  validate:"omitnil,max=200"`
	MinQuotes      *int     `json:"min_quotes"      validate:"omitnil,min=0,max=20"`
	MaxQuotes      *int     `json:"max_quotes"      validate:"omitnil,min=0,max=20"`
	MinRelevance   *float64 `json:"min_relevance"   validate:"omitnil,min=0,max=1"`
}

// ToDomain fills omitted fields from defaults. A blank topic means no topic filter.
func (r *InjectRequest) ToDomain(defaults domain.InjectionDefaults) domain.InjectionRequest {
	req := domain.InjectionRequest{
		Content:      r.ArticleContent,
		MinQuotes:    defaults.MinQuotes,
		MaxQuotes:    defaults.MaxQuotes,
		MinRelevance: defaults.MinRelevance,
	}

	if r.TopicCategory != nil {
		if topic := strings.TrimSpace(*r.TopicCategory); topic != "" {
			req.TopicCategory = &topic
		}
	}

	if r.MinQuotes != nil {
		req.MinQuotes = *r.MinQuotes
	}

	if r.MaxQuotes != nil {
		req.MaxQuotes = *r.MaxQuotes
	}

	if r.MinRelevance != nil {
		req.MinRelevance = *r.MinRelevance
	}

	return req
}

// QuoteUsed describes one placed quote.
type QuoteUsed struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Platform  string  `json:"platform"`
	Relevance float64 `json:"relevance"`
}

// InjectResponse is the 200 body of POST /inject-quotes.
type InjectResponse struct {
	Content        string      `json:"content"`
	QuotesInjected int         `json:"quotes_injected"`
	QuotesUsed     []QuoteUsed `json:"quotes_used"`
	Warning        string      `json:"warning,omitempty"`
}

// NewInjectResponse converts an engine result. QuotesUsed is never nil so it
// always encodes as an array.
func NewInjectResponse(result domain.InjectionResult) InjectResponse {
	used := make([]QuoteUsed, 0, len(result.QuotesUsed))
	for _, q := range result.QuotesUsed {
		used = append(used, QuoteUsed{
			ID:        q.ID,
			Text:      Preview(q.Text, QuotePreviewLength),
			Platform:  string(q.SourcePlatform),
			Relevance: q.RelevanceScore,
		})
	}

	return InjectResponse{
		Content:        result.Content,
		QuotesInjected: len(used),
		QuotesUsed:     used,
		Warning:        result.Warning,
	}
}

// Preview returns the first n characters of s, with "..." appended when s was cut.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	runes := []rune(s)

	return string(runes[:n]) + "..."
}
