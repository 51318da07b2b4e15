// Package quotestore implements ports.QuoteStore on PostgreSQL.
package quotestore

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/jsamuelsen/quote-injection-service/internal/adapters/postgres"
	"github.com/jsamuelsen/quote-injection-service/internal/domain"
)

const (
	table  = "quotes"
	entity = "quote"
)

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var columns = []string{
	"id::text AS id",
	"quote_text",
	"author",
	"source_platform",
	"source_url",
	"topic_category",
	"relevance_score",
	"is_appropriate",
	"times_used",
	"last_used_at",
}

// quoteRow mirrors one row of the quotes table.
type quoteRow struct {
	ID             string     `db:"id"`
	Text           string     `db:"quote_text"`
	Author         *string    `db:"author"`
	SourcePlatform string     `db:"source_platform"`
	SourceURL      *string    `db:"source_url"`
	TopicCategory  *string    `db:"topic_category"`
	RelevanceScore float64    `db:"relevance_score"`
	IsAppropriate  bool       `db:"is_appropriate"`
	TimesUsed      int64      `db:"times_used"`
	LastUsedAt     *time.Time `db:"last_used_at"`
}

func (r quoteRow) toDomain() domain.Quote {
	return domain.Quote{
		ID:             r.ID,
		Text:           r.Text,
		Author:         r.Author,
		SourcePlatform: domain.Platform(r.SourcePlatform),
		SourceURL:      r.SourceURL,
		TopicCategory:  r.TopicCategory,
		RelevanceScore: r.RelevanceScore,
		IsAppropriate:  r.IsAppropriate,
		TimesUsed:      r.TimesUsed,
		LastUsedAt:     r.LastUsedAt,
	}
}

// Repo reads and updates quotes.
type Repo struct {
	q postgres.Querier
}

// New creates a repository on q (a pool, a transaction, or a mock).
func New(q postgres.Querier) *Repo {
	return &Repo{q: q}
}

// FindEligible returns appropriate quotes at or above the relevance floor,
// best first: highest relevance, then least used, then id for a stable order.
func (r *Repo) FindEligible(ctx context.Context, filter domain.QuoteFilter) ([]domain.Quote, error) {
	query := builder.
		Select(columns...).
		From(table).
		Where(sq.Eq{"is_appropriate": true}).
		Where(sq.GtOrEq{"relevance_score": filter.MinRelevance})

	if filter.TopicCategory != nil {
		query = query.Where(sq.Eq{"topic_category": *filter.TopicCategory})
	}

	query = query.OrderBy("relevance_score DESC", "times_used ASC", "id ASC")

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build eligible quotes query: %w", err)
	}

	var rows []quoteRow
	if err := pgxscan.Select(ctx, r.q, &rows, sql, args...); err != nil {
		return nil, postgres.MapError(err, entity, "")
	}

	quotes := make([]domain.Quote, len(rows))
	for i, row := range rows {
		quotes[i] = row.toDomain()
	}

	return quotes, nil
}

// RecordUsage increments the usage counter of one quote and stamps usedAt.
// A quote that does not exist yields domain.NotFoundError.
func (r *Repo) RecordUsage(ctx context.Context, id string, usedAt time.Time) error {
	sql, args, err := builder.
		Update(table).
		Set("times_used", sq.Expr("times_used + 1")).
		Set("last_used_at", usedAt).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build usage update: %w", err)
	}

	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, entity, id)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError(entity, id)
	}

	return nil
}
