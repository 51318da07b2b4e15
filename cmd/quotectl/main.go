// Package main is quotectl, the operator CLI: schema migrations and one-off
// injections against the configured quote store.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quote-injection-service/internal/adapters/store"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/config"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	profile  string
	logLevel string
}

func main() {
	if err := newRootCmd(store.Open).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(open storeOpener) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "quotectl",
		Short:         "Operate the quote injection service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.profile, "profile", defaultProfile(),
		"configuration profile (configs/base.yaml merged with configs/<profile>.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		newMigrateCmd(opts),
		newInjectCmd(opts, open),
	)

	return root
}

func defaultProfile() string {
	if p := os.Getenv("APP_ENVIRONMENT"); p != "" {
		return p
	}

	return "local"
}

// loadConfig reads .env, the profile, and APP_ environment overrides.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load(o.profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// logger writes human-readable records to stderr so stdout stays parseable.
func (o *globalOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logging.NewWithWriter(&logging.Config{
		Level:   o.logLevel,
		Format:  "pretty",
		Service: "quotectl",
		Version: version,
	}, cmd.ErrOrStderr())
}
