package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-injection-service/internal/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		errCheck func(error) bool
	}{
		{
			name:     "no rows",
			err:      pgx.ErrNoRows,
			errCheck: domain.IsNotFound,
		},
		{
			name:     "wrapped no rows",
			err:      fmt.Errorf("scan row: %w", pgx.ErrNoRows),
			errCheck: domain.IsNotFound,
		},
		{
			name:     "unique violation",
			err:      &pgconn.PgError{Code: "23505", ConstraintName: "quotes_pkey"},
			errCheck: domain.IsConflict,
		},
		{
			name:     "foreign key violation",
			err:      &pgconn.PgError{Code: "23503"},
			errCheck: domain.IsNotFound,
		},
		{
			name:     "check violation",
			err:      &pgconn.PgError{Code: "23514", ColumnName: "relevance_score", Message: "out of range"},
			errCheck: domain.IsValidation,
		},
		{
			name:     "malformed id",
			err:      &pgconn.PgError{Code: "22P02"},
			errCheck: domain.IsNotFound,
		},
		{
			name:     "connection failure",
			err:      errors.New("dial tcp: connection refused"),
			errCheck: domain.IsUnavailable,
		},
		{
			name: "deadline passes through",
			err:  context.DeadlineExceeded,
			errCheck: func(err error) bool {
				return errors.Is(err, context.DeadlineExceeded) && !domain.IsUnavailable(err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err, "quote", "q-1")
			require.Error(t, got)
			assert.True(t, tt.errCheck(got), "unexpected mapping: %v", got)
		})
	}
}

func TestMapError_ListQueryIsNeverNotFound(t *testing.T) {
	for _, err := range []error{
		pgx.ErrNoRows,
		&pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"},
		&pgconn.PgError{Code: "23503"},
		&pgconn.PgError{Code: "42P01", Message: `relation "quotes" does not exist`},
	} {
		got := MapError(err, "quote", "")
		assert.True(t, domain.IsUnavailable(got), "%v mapped to %v", err, got)
		assert.False(t, domain.IsNotFound(got))
	}
}

func TestMapError_HidesDriverText(t *testing.T) {
	cause := errors.New("failed to connect to `user=svc_admin database=quotes_prod`: 127.0.0.1:1: connection refused")

	got := MapError(cause, "quote", "")
	require.True(t, domain.IsUnavailable(got))

	var unavailable *domain.UnavailableError
	require.ErrorAs(t, got, &unavailable)
	assert.Equal(t, "database unavailable", unavailable.Reason)
	assert.NotContains(t, unavailable.Error(), "svc_admin")
	assert.Contains(t, got.Error(), "connection refused", "the cause is kept for logs")
}

func TestMapError_Nil(t *testing.T) {
	assert.NoError(t, MapError(nil, "quote", "q-1"))
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthChecker(t *testing.T) {
	healthy := NewHealthChecker(stubPinger{})
	assert.Equal(t, ServiceName, healthy.Name())
	assert.NoError(t, healthy.Check(context.Background()))

	down := NewHealthChecker(stubPinger{err: errors.New("connection reset")})
	err := down.Check(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
}
