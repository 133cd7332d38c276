package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// timeoutError satisfies net.Error the way a dropped connection surfaces
// from the pgx wire layer.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func pgError(code string) *pgconn.PgError {
	return &pgconn.PgError{Code: code, Message: "sqlstate " + code}
}

// retryStore builds a store suitable for exercising the retry loop; neither
// withRetry nor isTransient touches the pool.
func retryStore(attempts int) *PostgresStore {
	return NewPostgresStore(nil, RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond})
}

func TestWithRetry_TransientErrorRetriesToExhaustion(t *testing.T) {
	store := retryStore(3)
	connErr := pgError("08006")

	calls := 0
	err := store.withRetry(context.Background(), "test op", func() error {
		calls++
		return connErr
	})

	assert.Equal(t, 3, calls, "a connection failure must use every attempt")
	assert.ErrorIs(t, err, connErr)
}

func TestWithRetry_NonTransientErrorFailsFast(t *testing.T) {
	store := retryStore(3)
	constraintErr := pgError("23505")

	calls := 0
	err := store.withRetry(context.Background(), "test op", func() error {
		calls++
		return constraintErr
	})

	assert.Equal(t, 1, calls, "a constraint violation must not be retried")
	assert.ErrorIs(t, err, constraintErr)
}

func TestWithRetry_SucceedsAfterTransientFailure(t *testing.T) {
	store := retryStore(3)

	calls := 0
	err := store.withRetry(context.Background(), "test op", func() error {
		calls++
		if calls == 1 {
			return timeoutError{}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_CancelledContextShortCircuits(t *testing.T) {
	store := retryStore(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := store.withRetry(ctx, "test op", func() error {
		calls++
		return timeoutError{}
	})

	assert.Equal(t, 1, calls, "cancellation must stop the backoff wait, not start another attempt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithRetry_FirstSuccessReturnsImmediately(t *testing.T) {
	store := retryStore(3)

	calls := 0
	err := store.withRetry(context.Background(), "test op", func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"plain error", errors.New("boom"), false},
		{"network timeout", timeoutError{}, true},
		{"connection failure 08006", pgError("08006"), true},
		{"connection does not exist 08003", pgError("08003"), true},
		{"insufficient resources 53300", pgError("53300"), true},
		{"admin shutdown 57P01", pgError("57P01"), true},
		{"serialization failure 40001", pgError("40001"), true},
		{"deadlock detected 40P01", pgError("40P01"), true},
		{"unique violation 23505", pgError("23505"), false},
		{"foreign key violation 23503", pgError("23503"), false},
		{"syntax error 42601", pgError("42601"), false},
		{"undefined table 42P01", pgError("42P01"), false},
		{"context canceled", context.Canceled, false},
		{"wrapped connection failure", fmt.Errorf("error merging staging table: %w", pgError("08006")), true},
		{"wrapped unique violation", fmt.Errorf("error merging staging table: %w", pgError("23505")), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isTransient(tc.err))
		})
	}
}
