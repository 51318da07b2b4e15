package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-injection-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-injection-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/config"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/telemetry"
)

// DefaultRequestTimeout bounds an injection request when none is configured.
const DefaultRequestTimeout = 10 * time.Second

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	Logger *slog.Logger

	// ServiceName names the otelgin server spans.
	ServiceName string

	// AuthConfig controls the gateway identity check on the inject routes.
	AuthConfig *config.AuthConfig

	HealthHandler *handlers.HealthHandler
	InjectHandler *handlers.InjectHandler

	// Timeout is the per-request deadline for the inject routes.
	Timeout time.Duration
}

// SetupRouter installs the middleware chain and routes on engine.
// Global middleware order (first to last):
//  1. Recovery
//  2. Request ID
//  3. Correlation ID
//  4. OpenTelemetry tracing and HTTP metrics
//  5. Request logging (skips /-/)
//
// Routes:
//   - /-/live, /-/ready, /-/build, /-/metrics: no auth, no timeout
//   - POST /inject-quotes and POST /api/v1/inject-quotes: timeout, then gateway identity
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	global := []gin.HandlerFunc{
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
	}
	global = append(global, telemetry.Middleware(cfg.ServiceName)...)
	global = append(global, middleware.Logging())

	engine.Use(global...)

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(engine)
	}

	if cfg.InjectHandler != nil {
		setupInjectRoutes(engine, cfg)
	}
}

func setupInjectRoutes(engine *gin.Engine, cfg RouterConfig) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	authCfg := cfg.AuthConfig
	if authCfg == nil {
		authCfg = &config.AuthConfig{}
	}

	chain := []gin.HandlerFunc{
		middleware.Timeout(timeout),
		middleware.GatewayIdentity(authCfg),
	}

	cfg.InjectHandler.RegisterRoutes(engine, chain...)
	cfg.InjectHandler.RegisterRoutes(engine.Group("/api/v1"), chain...)
}

// SetupMinimalRouter sets up a router with just the operational endpoints.
func SetupMinimalRouter(engine *gin.Engine, logger *slog.Logger, healthHandler *handlers.HealthHandler) {
	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
	)

	if healthHandler != nil {
		healthHandler.RegisterRoutes(engine)
	}
}

// NewRouterConfig builds a RouterConfig from the loaded configuration.
func NewRouterConfig(
	logger *slog.Logger,
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	injectHandler *handlers.InjectHandler,
) RouterConfig {
	return RouterConfig{
		Logger:        logger,
		ServiceName:   cfg.App.Name,
		AuthConfig:    &cfg.Auth,
		HealthHandler: healthHandler,
		InjectHandler: injectHandler,
		Timeout:       cfg.Server.RequestTimeout,
	}
}
