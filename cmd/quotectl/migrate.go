package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quote-injection-service/migrations"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the quotes schema migrations",
		Long: `migrate manages the quotes table with the SQL migrations embedded in the
binary. The database comes from --dsn, or database.dsn of the selected profile.`,
	}

	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string (overrides database.dsn)")

	run := func(action func(ctx context.Context, p *goose.Provider, w io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			target := dsn
			if target == "" {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}

				target = cfg.Database.DSN
			}

			if target == "" {
				return errors.New("no database: pass --dsn or set database.dsn")
			}

			return withProvider(cmd.Context(), target, func(p *goose.Provider) error {
				return action(cmd.Context(), p, cmd.OutOrStdout())
			})
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  run(migrateUp),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE:  run(migrateDown),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			Args:  cobra.NoArgs,
			RunE:  run(migrateStatus),
		},
	)

	return cmd
}

func withProvider(ctx context.Context, dsn string, fn func(*goose.Provider) error) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	return fn(provider)
}

func migrateUp(ctx context.Context, p *goose.Provider, w io.Writer) error {
	results, err := p.Up(ctx)
	for _, r := range results {
		fmt.Fprintln(w, r)
	}

	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "no pending migrations")
	}

	return nil
}

func migrateDown(ctx context.Context, p *goose.Provider, w io.Writer) error {
	result, err := p.Down(ctx)
	if err != nil {
		return fmt.Errorf("goose down: %w", err)
	}

	fmt.Fprintln(w, result)

	return nil
}

func migrateStatus(ctx context.Context, p *goose.Provider, w io.Writer) error {
	statuses, err := p.Status(ctx)
	if err != nil {
		return fmt.Errorf("goose status: %w", err)
	}

	for _, s := range statuses {
		applied := "pending"
		if s.State == goose.StateApplied {
			applied = s.AppliedAt.Format(time.RFC3339)
		}

		fmt.Fprintf(w, "%05d  %-40s  %s\n", s.Source.Version, s.Source.Path, applied)
	}

	return nil
}
