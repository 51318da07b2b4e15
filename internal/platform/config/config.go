// Package config loads the service configuration with koanf and validates it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jsamuelsen/quote-injection-service/internal/domain"
)

// Transport pool sizes applied when the client section leaves them unset.
const (
	DefaultTransportMaxIdleConns        = 100
	DefaultTransportMaxIdleConnsPerHost = 10
	DefaultTransportIdleConnTimeout     = 90 * time.Second
)

const (
	// DefaultDir holds base.yaml and one <profile>.yaml per environment.
	DefaultDir = "configs"

	envPrefix = "APP_"
)

// Config is the root configuration structure.
type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Auth      AuthConfig      `koanf:"auth"`
	Store     StoreConfig     `koanf:"store"     validate:"required"`
	Database  DatabaseConfig  `koanf:"database"`
	Client    ClientConfig    `koanf:"client"    validate:"required"`
	Injection InjectionConfig `koanf:"injection" validate:"required"`
	Features  map[string]bool `koanf:"features"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	RequestTimeout  time.Duration `koanf:"request_timeout"  validate:"required,min=100ms"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"       validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"   validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"    validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,hostname_port"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
	Insecure     bool    `koanf:"insecure"`
}

// AuthConfig names the identity headers set by the gateway in front of the
// service. Token validation happens at the gateway.
type AuthConfig struct {
	Enabled       bool   `koanf:"enabled"`
	SubjectHeader string `koanf:"subject_header" validate:"required_if=Enabled true"`
	RolesHeader   string `koanf:"roles_header"`
	ScopesHeader  string `koanf:"scopes_header"`
	// InjectScope, when set, must be present in the scopes header to call the injection route.
	InjectScope string `koanf:"inject_scope"`
}

// StoreConfig selects the quote store backend.
type StoreConfig struct {
	Driver string          `koanf:"driver" validate:"required,oneof=postgres rest"`
	Rest   RestStoreConfig `koanf:"rest"`
}

// RestStoreConfig points at a PostgREST-compatible API serving the quotes table.
type RestStoreConfig struct {
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
	APIKey  string `koanf:"api_key"`
	Name    string `koanf:"name"`
}

// DatabaseConfig configures the pgx connection pool used by the postgres store driver.
type DatabaseConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxConns        int32         `koanf:"max_conns"          validate:"omitempty,min=1,max=1000"`
	MinConns        int32         `koanf:"min_conns"          validate:"omitempty,min=0,ltefield=MaxConns"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time"`
}

// InjectionConfig holds engine defaults and usage tracking settings.
type InjectionConfig struct {
	DefaultMinQuotes    int            `koanf:"default_min_quotes"    validate:"min=0,max=20"`
	DefaultMaxQuotes    int            `koanf:"default_max_quotes"    validate:"required,min=1,max=20,gtefield=DefaultMinQuotes"`
	DefaultMinRelevance float64        `koanf:"default_min_relevance" validate:"min=0,max=1"`
	Tracking            TrackingConfig `koanf:"tracking"              validate:"required"`
}

// TrackingConfig bounds the background usage updates.
type TrackingConfig struct {
	Timeout     time.Duration `koanf:"timeout"     validate:"required,min=100ms"`
	Concurrency int           `koanf:"concurrency" validate:"required,min=1,max=64"`
}

// ClientConfig contains HTTP client settings for downstream services.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	Retry          RetryConfig          `koanf:"retry"           validate:"required"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
	Transport      TransportConfig      `koanf:"transport"       validate:"required"`
}

// RetryConfig contains retry settings for HTTP clients.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig contains circuit breaker settings for HTTP clients.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// TransportConfig contains HTTP transport pool settings.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"         validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"      validate:"required,min=1s"`
}

// defaults is the lowest layer. Anything a YAML file or APP_ variable does
// not set keeps these values.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "quote-injection-service",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.request_timeout":  "10s",
		"server.max_request_size": 1 << 20,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/quote-injection.log",
		"log.file.max_size":    100,
		"log.file.max_backups": 3,
		"log.file.max_age":     28,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.service_name":  "quote-injection-service",
		"telemetry.sampling_rate": 1.0,

		"auth.enabled":        false,
		"auth.subject_header": "X-User-ID",
		"auth.roles_header":   "X-User-Roles",
		"auth.scopes_header":  "X-User-Scopes",

		"store.driver":    "postgres",
		"store.rest.name": "quote-store",

		"database.max_conns":          10,
		"database.min_conns":          0,
		"database.max_conn_lifetime":  "1h",
		"database.max_conn_idle_time": "30m",

		"client.timeout":                           "30s",
		"client.retry.max_attempts":                3,
		"client.retry.initial_interval":            "100ms",
		"client.retry.max_interval":                "5s",
		"client.retry.multiplier":                  2.0,
		"client.retry.jitter_factor":               0.25,
		"client.circuit_breaker.max_failures":      5,
		"client.circuit_breaker.timeout":           "30s",
		"client.circuit_breaker.half_open_limit":   3,
		"client.transport.max_idle_conns":          DefaultTransportMaxIdleConns,
		"client.transport.max_idle_conns_per_host": DefaultTransportMaxIdleConnsPerHost,
		"client.transport.idle_conn_timeout":       DefaultTransportIdleConnTimeout.String(),

		"injection.default_min_quotes":    domain.DefaultMinQuotes,
		"injection.default_max_quotes":    domain.DefaultMaxQuotes,
		"injection.default_min_relevance": domain.DefaultMinRelevance,
		"injection.tracking.timeout":      "5s",
		"injection.tracking.concurrency":  4,

		"features.quote-injection": true,
	}
}

// Load reads the profile from DefaultDir relative to the working directory.
func Load(profile string) (*Config, error) {
	return LoadDir(DefaultDir, profile)
}

// LoadDir layers, lowest first: defaults, dir/base.yaml, dir/<profile>.yaml,
// then APP_ environment variables where "__" separates nested keys
// (APP_DATABASE__DSN sets database.dsn). Missing files are skipped.
func LoadDir(dir, profile string) (*Config, error) {
	k := koanf.New(".")

	layers := []struct {
		name string
		load func() error
	}{
		{"defaults", func() error { return k.Load(confmap.Provider(defaults(), "."), nil) }},
		{"base config", func() error { return loadYAML(k, filepath.Join(dir, "base.yaml")) }},
		{fmt.Sprintf("profile %q", profile), func() error {
			if profile == "" {
				return nil
			}

			return loadYAML(k, filepath.Join(dir, profile+".yaml"))
		}},
		{"env vars", func() error { return k.Load(env.Provider(envPrefix, ".", envKey), nil) }},
	}

	for _, l := range layers {
		if err := l.load(); err != nil {
			return nil, fmt.Errorf("loading %s: %w", l.name, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

func loadYAML(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}

// envKey maps APP_LOG__FILE__MAX_SIZE to log.file.max_size. Single
// underscores stay, so snake_case keys survive.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
}

// LoadDotEnv copies KEY=value pairs from the given files (".env" when none
// are given) into the environment. Variables already set win and missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}

	return nil
}

// InjectionDefaults converts the configured defaults for the engine.
func (c InjectionConfig) InjectionDefaults() domain.InjectionDefaults {
	return domain.InjectionDefaults{
		MinQuotes:    c.DefaultMinQuotes,
		MaxQuotes:    c.DefaultMaxQuotes,
		MinRelevance: c.DefaultMinRelevance,
	}
}
