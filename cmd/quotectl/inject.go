package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quote-injection-service/internal/adapters/flags"
	"github.com/jsamuelsen/quote-injection-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-injection-service/internal/adapters/store"
	"github.com/jsamuelsen/quote-injection-service/internal/app"
	"github.com/jsamuelsen/quote-injection-service/internal/domain"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/config"
	"github.com/jsamuelsen/quote-injection-service/internal/ports"
)

// storeOpener opens the configured quote store.
type storeOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Handle, error)

type injectOptions struct {
	file         string
	topic        string
	minQuotes    int
	maxQuotes    int
	minRelevance float64
	dryRun       bool
	contentOnly  bool
}

func newInjectCmd(global *globalOptions, open storeOpener) *cobra.Command {
	opts := &injectOptions{}

	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Inject quotes into one article and print the result",
		Long: `inject runs the same pipeline as POST /inject-quotes against the configured
quote store. The article is read from --file, or stdin when --file is "-".
The response body is printed as JSON unless --content-only is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInject(cmd, global, opts, open)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "-", "article HTML file, or - for stdin")
	f.StringVar(&opts.topic, "topic", "", "only use quotes in this topic category")
	f.IntVar(&opts.minQuotes, "min-quotes", 0, "minimum quotes wanted (default injection.default_min_quotes)")
	f.IntVar(&opts.maxQuotes, "max-quotes", 0, "maximum quotes placed (default injection.default_max_quotes)")
	f.Float64Var(&opts.minRelevance, "min-relevance", 0, "relevance threshold 0-1 (default injection.default_min_relevance)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "do not record quote usage")
	f.BoolVar(&opts.contentOnly, "content-only", false, "print only the merged HTML")

	return cmd
}

func runInject(cmd *cobra.Command, global *globalOptions, opts *injectOptions, open storeOpener) error {
	ctx := cmd.Context()

	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}

	logger := global.logger(cmd)

	article, err := readArticle(cmd, opts.file)
	if err != nil {
		return err
	}

	body := dto.InjectRequest{ArticleContent: article}
	f := cmd.Flags()
	if f.Changed("topic") {
		body.TopicCategory = &opts.topic
	}

	if f.Changed("min-quotes") {
		body.MinQuotes = &opts.minQuotes
	}

	if f.Changed("max-quotes") {
		body.MaxQuotes = &opts.maxQuotes
	}

	if f.Changed("min-relevance") {
		body.MinRelevance = &opts.minRelevance
	}

	if err := dto.Validate(&body); err != nil {
		return fmt.Errorf("invalid request: %v", dto.ValidationErrors(err))
	}

	handle, err := open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("opening quote store: %w", err)
	}
	defer handle.Close()

	quoteStore := handle.Store
	if opts.dryRun {
		quoteStore = readOnlyStore{quoteStore}
	}

	featureFlags, err := flags.NewStatic(cfg.Features)
	if err != nil {
		return fmt.Errorf("loading feature flags: %w", err)
	}

	tracker := app.NewUsageTracker(app.UsageTrackerConfig{
		Store:       quoteStore,
		Logger:      logger,
		Timeout:     cfg.Injection.Tracking.Timeout,
		Concurrency: cfg.Injection.Tracking.Concurrency,
	})

	svc := app.NewInjectionService(app.InjectionServiceConfig{
		Store:   quoteStore,
		Tracker: tracker,
		Flags:   featureFlags,
		Logger:  logger,
	})

	result, err := svc.Inject(ctx, body.ToDomain(cfg.Injection.InjectionDefaults()))
	if err != nil {
		return fmt.Errorf("inject: %w", err)
	}

	// Usage updates run in the background; wait for them before exiting.
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Injection.Tracking.Timeout+time.Second)
	defer cancel()

	if err := tracker.Shutdown(drainCtx); err != nil {
		logger.Warn("usage updates not drained", slog.Any("error", err))
	}

	return printResult(cmd.OutOrStdout(), result, opts.contentOnly)
}

func readArticle(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)

	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return "", fmt.Errorf("reading article: %w", err)
	}

	return string(data), nil
}

func printResult(w io.Writer, result domain.InjectionResult, contentOnly bool) error {
	if contentOnly {
		_, err := io.WriteString(w, result.Content)
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(dto.NewInjectResponse(result))
}

// readOnlyStore serves reads and drops usage updates.
type readOnlyStore struct {
	ports.QuoteStore
}

func (readOnlyStore) RecordUsage(context.Context, string, time.Time) error {
	return nil
}
