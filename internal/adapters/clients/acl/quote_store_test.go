package acl

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-injection-service/internal/adapters/clients"
	"github.com/jsamuelsen/quote-injection-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-injection-service/internal/domain"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/config"
)

const testAPIKey = "service-role-key"

// setupQuoteStore creates a QuoteStore backed by a test HTTP server.
func setupQuoteStore(t *testing.T, handler http.HandlerFunc) *QuoteStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := clients.New(&clients.Config{
		ServiceName: "quote-store",
		BaseURL:     server.URL,
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   2,
			Timeout:       time.Minute,
			HalfOpenLimit: 1,
		},
		AuthFunc: APIKeyAuth(testAPIKey),
	})
	require.NoError(t, err)

	return NewQuoteStore(QuoteStoreConfig{
		Client: client,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestNewQuoteStore_PanicsWithoutClient(t *testing.T) {
	assert.Panics(t, func() { NewQuoteStore(QuoteStoreConfig{}) })
}

func TestQuoteStore_Name(t *testing.T) {
	store := setupQuoteStore(t, func(http.ResponseWriter, *http.Request) {})
	assert.Equal(t, "quote-store", store.Name())
}

func TestQuoteStore_FindEligible(t *testing.T) {
	var received *http.Request

	store := setupQuoteStore(t, func(w http.ResponseWriter, r *http.Request) {
		received = r.Clone(context.Background())

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
			{"id":"q-1","quote_text":"Ship small PRs","author":"u/dev","source_platform":"reddit",
			 "source_url":"https://reddit.com/r/golang/1","topic_category":"go programming","relevance_score":0.92,
			 "is_appropriate":true,"times_used":4,"last_used_at":"2026-09-30T10:00:00+00:00"},
			{"id":"q-2","quote_text":"   ","source_platform":"forum","relevance_score":0.9,"is_appropriate":true,"times_used":0},
			{"id":"q-3","quote_text":"Read the docs","source_platform":"hackernews","relevance_score":0.75,
			 "is_appropriate":true,"times_used":0,"last_used_at":null}
		]`)
	})

	topic := "go programming"
	quotes, err := store.FindEligible(context.Background(), domain.QuoteFilter{
		TopicCategory: &topic,
		MinRelevance:  0.6,
		Limit:         10,
	})
	require.NoError(t, err)

	require.NotNil(t, received)
	assert.Equal(t, quotesPath, received.URL.Path)
	assert.Equal(t, testAPIKey, received.Header.Get("apikey"))
	assert.Equal(t, "Bearer "+testAPIKey, received.Header.Get("Authorization"))

	query := received.URL.Query()
	assert.Equal(t, "eq.true", query.Get("is_appropriate"))
	assert.Equal(t, "gte.0.6", query.Get("relevance_score"))
	assert.Equal(t, `eq."go programming"`, query.Get("topic_category"))
	assert.Equal(t, "relevance_score.desc,times_used.asc,id.asc", query.Get("order"))
	assert.Equal(t, "10", query.Get("limit"))

	require.Len(t, quotes, 2, "blank quote text must be dropped")
	assert.Equal(t, "q-1", quotes[0].ID)
	assert.Equal(t, domain.PlatformReddit, quotes[0].SourcePlatform)
	require.NotNil(t, quotes[0].LastUsedAt)
	assert.Equal(t, int64(4), quotes[0].TimesUsed)
	assert.Equal(t, "q-3", quotes[1].ID)
	assert.Nil(t, quotes[1].LastUsedAt)
}

func TestQuoteStore_FindEligible_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		isError func(error) bool
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"message":"boom"}`, isError: domain.IsUnavailable},
		{name: "invalid json", status: http.StatusOK, body: `{"not":"a list"}`, isError: domain.IsUnavailable},
		{name: "expired key", status: http.StatusUnauthorized, body: `{"code":"PGRST301","message":"JWT expired"}`, isError: domain.IsUnavailable},
		{
			name:    "missing table",
			status:  http.StatusNotFound,
			body:    `{"code":"PGRST205","message":"Could not find the table 'public.quotes' in the schema cache"}`,
			isError: domain.IsUnavailable,
		},
		{name: "wrong base path", status: http.StatusNotFound, body: "", isError: domain.IsUnavailable},
		{name: "bad filter value", status: http.StatusBadRequest, body: `{"code":"22P02","message":"invalid input syntax"}`, isError: domain.IsUnavailable},
		{name: "no rows code", status: http.StatusNotAcceptable, body: `{"code":"PGRST116","message":"no rows"}`, isError: domain.IsUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupQuoteStore(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := store.FindEligible(context.Background(), domain.QuoteFilter{MinRelevance: 0.6, Limit: 4})
			require.Error(t, err)
			assert.True(t, tt.isError(err), "unexpected error: %v", err)
			assert.False(t, domain.IsNotFound(err), "a failed list query is never a missing quote")

			status, resp := dto.MapDomainError(err)
			assert.Equal(t, http.StatusServiceUnavailable, status)
			assert.Equal(t, dto.ErrorCodeUnavailable, resp.Code)
		})
	}
}

func TestQuoteStore_RecordUsage(t *testing.T) {
	var payload usageRequest

	store := setupQuoteStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, usagePath, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		switch payload.QuoteID {
		case "q-1":
			_, _ = io.WriteString(w, "5")
		default:
			_, _ = io.WriteString(w, "null")
		}
	})

	require.NoError(t, store.RecordUsage(context.Background(), "q-1", time.Now()))
	assert.Equal(t, "q-1", payload.QuoteID)

	err := store.RecordUsage(context.Background(), "q-missing", time.Now())
	assert.True(t, domain.IsNotFound(err), "unexpected error: %v", err)
}

func TestQuoteStore_Check(t *testing.T) {
	var calls atomic.Int32
	healthy := atomic.Bool{}
	healthy.Store(true)

	store := setupQuoteStore(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, url.Values{"select": {"id"}, "limit": {"1"}}, r.URL.Query())

		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "[]")
	})

	require.NoError(t, store.Check(context.Background()))

	healthy.Store(false)
	for range 2 {
		err := store.Check(context.Background())
		assert.True(t, domain.IsUnavailable(err))
	}

	// The breaker is now open, so the check answers without calling the server.
	before := calls.Load()
	err := store.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open until")
	assert.Equal(t, before, calls.Load())
}

func TestQuoteFilterValue(t *testing.T) {
	assert.Equal(t, "golang", quoteFilterValue("golang"))
	assert.Equal(t, `"a,b"`, quoteFilterValue("a,b"))
	assert.Equal(t, `"say \"hi\""`, quoteFilterValue(`say "hi"`))
}
