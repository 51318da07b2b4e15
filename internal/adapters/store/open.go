// Package store opens the quote store selected by store.driver.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quote-injection-service/internal/adapters/clients"
	"github.com/jsamuelsen/quote-injection-service/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quote-injection-service/internal/adapters/postgres"
	"github.com/jsamuelsen/quote-injection-service/internal/adapters/postgres/quotestore"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/config"
	"github.com/jsamuelsen/quote-injection-service/internal/ports"
)

// Store driver names accepted by store.driver.
const (
	DriverPostgres = "postgres"
	DriverREST     = "rest"
)

// Handle is an opened quote store with its readiness check.
type Handle struct {
	Store  ports.QuoteStore
	Health ports.HealthChecker
	close  func()
}

// Close releases the store's resources. Safe to call on a nil Handle.
func (h *Handle) Close() {
	if h != nil && h.close != nil {
		h.close()
	}
}

// Open builds the configured driver: a pgx pool over the quotes table, or the
// resilient HTTP client over a PostgREST API.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Handle, error) {
	switch cfg.Store.Driver {
	case DriverREST:
		client, err := clients.New(&clients.Config{
			BaseURL:     cfg.Store.Rest.BaseURL,
			ServiceName: cfg.Store.Rest.Name,
			Timeout:     cfg.Client.Timeout,
			Retry:       cfg.Client.Retry,
			Circuit:     cfg.Client.CircuitBreaker,
			Transport:   cfg.Client.Transport,
			AuthFunc:    acl.APIKeyAuth(cfg.Store.Rest.APIKey),
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create quote store client: %w", err)
		}

		s := acl.NewQuoteStore(acl.QuoteStoreConfig{Client: client, Logger: logger})

		return &Handle{Store: s, Health: s}, nil

	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}

		return &Handle{
			Store:  quotestore.New(pool),
			Health: postgres.NewHealthChecker(pool),
			close:  pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
