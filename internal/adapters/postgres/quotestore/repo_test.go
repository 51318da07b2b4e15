package quotestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-injection-service/internal/domain"
)

var rowColumns = []string{
	"id", "quote_text", "author", "source_platform", "source_url",
	"topic_category", "relevance_score", "is_appropriate", "times_used", "last_used_at",
}

func strPtr(s string) *string { return &s }

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})

	return mock
}

func TestRepo_FindEligible(t *testing.T) {
	usedAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   domain.QuoteFilter
		setup    func(mock pgxmock.PgxPoolIface)
		expected []domain.Quote
		errCheck func(error) bool
	}{
		{
			name:   "maps rows in store order",
			filter: domain.QuoteFilter{MinRelevance: 0.6, Limit: 10},
			setup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(rowColumns).
					AddRow("q-1", "Ship it on Friday", strPtr("u/ops"), "reddit", strPtr("https://reddit.com/r/ops/1"),
						strPtr("devops"), 0.95, true, int64(3), &usedAt).
					AddRow("q-2", "Tabs forever", (*string)(nil), "hackernews", (*string)(nil),
						(*string)(nil), 0.7, true, int64(0), (*time.Time)(nil))

				mock.ExpectQuery(`SELECT id::text AS id, quote_text, .+ FROM quotes `+
					`WHERE is_appropriate = \$1 AND relevance_score >= \$2 `+
					`ORDER BY relevance_score DESC, times_used ASC, id ASC LIMIT 10`).
					WithArgs(true, 0.6).
					WillReturnRows(rows)
			},
			expected: []domain.Quote{
				{
					ID:             "q-1",
					Text:           "Ship it on Friday",
					Author:         strPtr("u/ops"),
					SourcePlatform: domain.PlatformReddit,
					SourceURL:      strPtr("https://reddit.com/r/ops/1"),
					TopicCategory:  strPtr("devops"),
					RelevanceScore: 0.95,
					IsAppropriate:  true,
					TimesUsed:      3,
					LastUsedAt:     &usedAt,
				},
				{
					ID:             "q-2",
					Text:           "Tabs forever",
					SourcePlatform: domain.PlatformHackerNews,
					RelevanceScore: 0.7,
					IsAppropriate:  true,
				},
			},
		},
		{
			name:   "filters by topic",
			filter: domain.QuoteFilter{TopicCategory: strPtr("golang"), MinRelevance: 0.5, Limit: 4},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`WHERE is_appropriate = \$1 AND relevance_score >= \$2 AND topic_category = \$3 .+ LIMIT 4`).
					WithArgs(true, 0.5, "golang").
					WillReturnRows(pgxmock.NewRows(rowColumns))
			},
			expected: []domain.Quote{},
		},
		{
			name:   "query failure is unavailable",
			filter: domain.QuoteFilter{MinRelevance: 0.6, Limit: 10},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT`).
					WithArgs(true, 0.6).
					WillReturnError(errors.New("connection reset by peer"))
			},
			errCheck: domain.IsUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setup(mock)

			got, err := New(mock).FindEligible(context.Background(), tt.filter)

			if tt.errCheck != nil {
				require.Error(t, err)
				assert.True(t, tt.errCheck(err), "unexpected error: %v", err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRepo_RecordUsage(t *testing.T) {
	usedAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	const update = `UPDATE quotes SET times_used = times_used \+ 1, last_used_at = \$1 WHERE id = \$2`

	tests := []struct {
		name     string
		setup    func(mock pgxmock.PgxPoolIface)
		errCheck func(error) bool
	}{
		{
			name: "increments one row",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(update).
					WithArgs(usedAt, "q-1").
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name: "missing quote",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(update).
					WithArgs(usedAt, "q-1").
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			errCheck: domain.IsNotFound,
		},
		{
			name: "malformed id",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(update).
					WithArgs(usedAt, "q-1").
					WillReturnError(&pgconn.PgError{Code: "22P02"})
			},
			errCheck: domain.IsNotFound,
		},
		{
			name: "database down",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(update).
					WithArgs(usedAt, "q-1").
					WillReturnError(errors.New("broken pipe"))
			},
			errCheck: domain.IsUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setup(mock)

			err := New(mock).RecordUsage(context.Background(), "q-1", usedAt)

			if tt.errCheck != nil {
				require.Error(t, err)
				assert.True(t, tt.errCheck(err), "unexpected error: %v", err)
				return
			}

			require.NoError(t, err)
		})
	}
}
