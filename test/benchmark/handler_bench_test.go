package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-injection-service/internal/adapters/flags"
	httpadapter "github.com/jsamuelsen/quote-injection-service/internal/adapters/http"
	"github.com/jsamuelsen/quote-injection-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-injection-service/internal/app"
	"github.com/jsamuelsen/quote-injection-service/internal/domain"
	"github.com/jsamuelsen/quote-injection-service/internal/injection"
	"github.com/jsamuelsen/quote-injection-service/internal/ports"
)

func init() {
	// Set Gin to release mode for accurate benchmarks
	gin.SetMode(gin.ReleaseMode)
}

// createGinContext creates a Gin context for handler testing.
func createGinContext(w http.ResponseWriter, r *http.Request) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Request = r
	return c
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupHealthHandler creates a HealthHandler with a minimal registry for benchmarking.
func setupHealthHandler() *handlers.HealthHandler {
	registry := ports.NewHealthRegistry()
	buildInfo := handlers.NewBuildInfo("1.0.0", "abc123", "2026-01-01T00:00:00Z")
	return handlers.NewHealthHandler(registry, buildInfo)
}

// memoryStore serves a fixed pool and discards usage updates.
type memoryStore struct {
	quotes []domain.Quote
}

func newMemoryStore(n int) *memoryStore {
	topic := "golang"
	quotes := make([]domain.Quote, n)

	for i := range quotes {
		quotes[i] = domain.Quote{
			ID:             fmt.Sprintf("q-%03d", i),
			Text:           fmt.Sprintf("Quote number %d with <markup> & entities", i),
			SourcePlatform: domain.PlatformReddit,
			TopicCategory:  &topic,
			RelevanceScore: 0.9,
			IsAppropriate:  true,
		}
	}

	return &memoryStore{quotes: quotes}
}

func (m *memoryStore) FindEligible(_ context.Context, filter domain.QuoteFilter) ([]domain.Quote, error) {
	return m.quotes[:min(len(m.quotes), filter.Limit)], nil
}

func (m *memoryStore) RecordUsage(context.Context, string, time.Time) error {
	return nil
}

func (m *memoryStore) Name() string { return "memory" }

func (m *memoryStore) Check(context.Context) error { return nil }

func article(paragraphs int) string {
	var b strings.Builder
	for i := range paragraphs {
		fmt.Fprintf(&b, "<p>Paragraph %d talks about goroutines, channels and the scheduler.</p>\n", i)
	}

	return b.String()
}

// setupRouter wires the full router over an in-memory store.
func setupRouter(b *testing.B) (*gin.Engine, *app.UsageTracker) {
	b.Helper()

	store := newMemoryStore(40)

	registry := ports.NewHealthRegistry()
	if err := registry.Register(store); err != nil {
		b.Fatal(err)
	}

	featureFlags, err := flags.NewStatic(map[string]bool{ports.FlagQuoteInjection: true})
	if err != nil {
		b.Fatal(err)
	}

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
		ServiceName:   "bench",
		HealthHandler: handlers.NewHealthHandler(registry, handlers.NewBuildInfo("bench", "bench", "bench")),
		InjectHandler: handlers.NewInjectHandler(service, domain.DefaultInjectionDefaults()),
	})

	return engine, tracker
}

// BenchmarkLivenessHandler measures the performance of the liveness endpoint.
func BenchmarkLivenessHandler(b *testing.B) {
	handler := setupHealthHandler()
	req := httptest.NewRequest(http.MethodGet, "/-/live", http.NoBody)

	b.ReportAllocs()

	for b.Loop() {
		w := httptest.NewRecorder()
		handler.Liveness(createGinContext(w, req))
	}
}

// BenchmarkReadinessHandler_WithChecks measures readiness with a registered store check.
func BenchmarkReadinessHandler_WithChecks(b *testing.B) {
	registry := ports.NewHealthRegistry()
	_ = registry.Register(newMemoryStore(1))

	handler := handlers.NewHealthHandler(registry, handlers.NewBuildInfo("1.0.0", "abc123", "2026-01-01T00:00:00Z"))
	req := httptest.NewRequest(http.MethodGet, "/-/ready", http.NoBody)

	b.ReportAllocs()

	for b.Loop() {
		w := httptest.NewRecorder()
		handler.Readiness(createGinContext(w, req))
	}
}

// BenchmarkInjectEndpoint measures a full request through the middleware chain.
func BenchmarkInjectEndpoint(b *testing.B) {
	engine, tracker := setupRouter(b)
	body := fmt.Sprintf(`{"article_content":%q,"max_quotes":5}`, article(20))

	b.ReportAllocs()

	for b.Loop() {
		req := httptest.NewRequest(http.MethodPost, "/inject-quotes", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			b.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
		}
	}

	b.StopTimer()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = tracker.Shutdown(ctx)
}

// BenchmarkLocate measures insertion point discovery on articles of growing size.
func BenchmarkLocate(b *testing.B) {
	for _, paragraphs := range []int{10, 100, 1000} {
		content := article(paragraphs)

		b.Run(fmt.Sprintf("paragraphs=%d", paragraphs), func(b *testing.B) {
			b.SetBytes(int64(len(content)))
			b.ReportAllocs()

			for b.Loop() {
				_ = injection.Locate(content)
			}
		})
	}
}

// BenchmarkMerge measures formatting and splicing once points are known.
func BenchmarkMerge(b *testing.B) {
	content := article(100)
	points := injection.Locate(content)
	quotes := newMemoryStore(10).quotes

	b.ReportAllocs()

	for b.Loop() {
		_ = injection.Merge(content, points, quotes)
	}
}
