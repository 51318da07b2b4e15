//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-injection-service/internal/adapters/clients"
	"github.com/jsamuelsen/quote-injection-service/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quote-injection-service/internal/adapters/flags"
	httpadapter "github.com/jsamuelsen/quote-injection-service/internal/adapters/http"
	"github.com/jsamuelsen/quote-injection-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-injection-service/internal/app"
	"github.com/jsamuelsen/quote-injection-service/internal/domain"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/config"
	"github.com/jsamuelsen/quote-injection-service/internal/ports"
)

const fakeAPIKey = "integration-key"

// quoteRow is one quotes row as PostgREST serializes it.
type quoteRow struct {
	ID             string  `json:"id"`
	QuoteText      string  `json:"quote_text"`
	Author         *string `json:"author"`
	SourcePlatform string  `json:"source_platform"`
	SourceURL      *string `json:"source_url"`
	TopicCategory  *string `json:"topic_category"`
	RelevanceScore float64 `json:"relevance_score"`
	IsAppropriate  bool    `json:"is_appropriate"`
	TimesUsed      int64   `json:"times_used"`
}

// fakePostgREST serves the two endpoints the REST quote store calls, backed by
// an in-memory table.
type fakePostgREST struct {
	*httptest.Server

	mu         sync.Mutex
	rows       []quoteRow
	failFor    int
	alwaysFail bool
	requests   int
	requestIDs []string
}

func newFakePostgREST(t *testing.T, rows ...quoteRow) *fakePostgREST {
	t.Helper()

	f := &fakePostgREST{rows: rows}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)

	return f
}

func (f *fakePostgREST) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests++
	f.requestIDs = append(f.requestIDs, r.Header.Get("X-Request-ID"))

	if r.Header.Get("apikey") != fakeAPIKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "PGRST301", "message": "JWT invalid"})
		return
	}

	if f.alwaysFail || f.failFor > 0 {
		f.failFor--
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "upstream restarting"})

		return
	}

	switch r.URL.Path {
	case "/rest/v1/quotes":
		writeJSON(w, http.StatusOK, f.query(r.URL.Query()))

	case "/rest/v1/rpc/increment_quote_usage":
		var body struct {
			QuoteID string `json:"quote_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "PGRST102", "message": err.Error()})
			return
		}

		for i := range f.rows {
			if f.rows[i].ID == body.QuoteID {
				f.rows[i].TimesUsed++
				writeJSON(w, http.StatusOK, f.rows[i].TimesUsed)

				return
			}
		}

		writeJSON(w, http.StatusOK, nil)

	default:
		http.NotFound(w, r)
	}
}

// query applies the subset of PostgREST filters the store sends.
func (f *fakePostgREST) query(q url.Values) []quoteRow {
	minRelevance := 0.0
	if v, ok := strings.CutPrefix(q.Get("relevance_score"), "gte."); ok {
		minRelevance, _ = strconv.ParseFloat(v, 64)
	}

	topic, hasTopic := strings.CutPrefix(q.Get("topic_category"), "eq.")
	topic = strings.Trim(topic, `"`)

	out := []quoteRow{}

	for _, row := range f.rows {
		if !row.IsAppropriate || row.RelevanceScore < minRelevance {
			continue
		}

		if hasTopic && (row.TopicCategory == nil || *row.TopicCategory != topic) {
			continue
		}

		out = append(out, row)
	}

	slices.SortStableFunc(out, func(a, b quoteRow) int {
		switch {
		case a.RelevanceScore > b.RelevanceScore:
			return -1
		case a.RelevanceScore < b.RelevanceScore:
			return 1
		default:
			return int(a.TimesUsed - b.TimesUsed)
		}
	})

	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit < len(out) {
		out = out[:limit]
	}

	return out
}

func (f *fakePostgREST) timesUsed(id string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, row := range f.rows {
		if row.ID == id {
			return row.TimesUsed
		}
	}

	return -1
}

func (f *fakePostgREST) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.requests
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func row(id, topic string, relevance float64) quoteRow {
	return quoteRow{
		ID:             id,
		QuoteText:      "Community quote " + id,
		SourcePlatform: string(domain.PlatformReddit),
		TopicCategory:  &topic,
		RelevanceScore: relevance,
		IsAppropriate:  true,
	}
}

// stack is the service wired the way cmd/service wires it, over a given store.
type stack struct {
	engine  *gin.Engine
	tracker *app.UsageTracker
}

type stackOptions struct {
	retryAttempts int
	maxFailures   int
	apiKey        string
	auth          config.AuthConfig
}

func restStore(t *testing.T, baseURL string, opts stackOptions) *acl.QuoteStore {
	t.Helper()

	maxFailures := opts.maxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	apiKey := opts.apiKey
	if apiKey == "" {
		apiKey = fakeAPIKey
	}

	client, err := clients.New(&clients.Config{
		ServiceName: "quote-store",
		BaseURL:     baseURL,
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     max(opts.retryAttempts, 1),
			InitialInterval: 5 * time.Millisecond,
			MaxInterval:     20 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   maxFailures,
			Timeout:       time.Minute,
			HalfOpenLimit: 1,
		},
		AuthFunc: acl.APIKeyAuth(apiKey),
		Logger:   discardLogger(),
	})
	require.NoError(t, err)

	return acl.NewQuoteStore(acl.QuoteStoreConfig{Client: client, Logger: discardLogger()})
}

func newStack(t *testing.T, store ports.QuoteStore, health ports.HealthChecker, opts stackOptions) *stack {
	t.Helper()

	registry := ports.NewHealthRegistry()
	require.NoError(t, registry.Register(health))

	featureFlags, err := flags.NewStatic(map[string]bool{ports.FlagQuoteInjection: true})
	require.NoError(t, err)

	tracker := app.NewUsageTracker(app.UsageTrackerConfig{Store: store, Logger: discardLogger()})
	service := app.NewInjectionService(app.InjectionServiceConfig{
		Store:   store,
		Tracker: tracker,
		Flags:   featureFlags,
		Logger:  discardLogger(),
	})

	engine := gin.New()
	httpadapter.SetupRouter(engine, httpadapter.RouterConfig{
		Logger:        discardLogger(),
		ServiceName:   "quote-injection-service",
		AuthConfig:    &opts.auth,
		HealthHandler: handlers.NewHealthHandler(registry, handlers.NewBuildInfo("it", "it", "it")),
		InjectHandler: handlers.NewInjectHandler(service, domain.DefaultInjectionDefaults()),
		Timeout:       5 * time.Second,
	})

	return &stack{engine: engine, tracker: tracker}
}

// inject posts body to /inject-quotes and returns the recorder.
func (s *stack) inject(body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/inject-quotes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	return w
}

func (s *stack) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	return w
}

// drain waits for background usage updates.
func (s *stack) drain(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.tracker.Shutdown(ctx))
}

func articleWith(paragraphs int) string {
	var b strings.Builder
	for i := range paragraphs {
		fmt.Fprintf(&b, "<p>Paragraph %d.</p>", i+1)
	}

	return b.String()
}

func requestBody(t *testing.T, fields map[string]any) string {
	t.Helper()

	data, err := json.Marshal(fields)
	require.NoError(t, err)

	return string(data)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
