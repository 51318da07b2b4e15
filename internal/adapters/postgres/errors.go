package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jsamuelsen/quote-injection-service/internal/domain"
)

// ServiceName identifies the database in UnavailableError values.
const ServiceName = "postgres"

// unavailableReason is what clients see when the database fails. Driver text
// can carry hosts, users and database names, so it stays in the wrapped cause.
const unavailableReason = "database unavailable"

// MapError converts pgx/pgconn errors to domain errors. An empty id marks a
// list query: no row or a malformed value there says nothing about a single
// entity, so those become unavailable like any other failed query. Context
// cancellation and deadline errors pass through wrapped, not translated.
func MapError(err error, entity, id string) error {
	if err == nil {
		return nil
	}

	ref := entity
	if id != "" {
		ref += " " + id
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", ref, err)
	}

	if id != "" && errors.Is(err, pgx.ErrNoRows) {
		return domain.NewNotFoundError(entity, id)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return domain.NewConflictError(entity, pgErr.ConstraintName)
		case "23514": // check_violation
			return domain.NewValidationError(pgErr.ColumnName, pgErr.Message)
		case "23503", "22P02": // foreign_key_violation, invalid_text_representation
			if id != "" {
				return domain.NewNotFoundError(entity, id)
			}
		}
	}

	return fmt.Errorf("%s: %w: %v", ref, domain.NewUnavailableError(ServiceName, unavailableReason), err)
}
