package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rfdados/cnpj-pipeline/internal/schema"
)

// ConnectDB opens a pgx pool and verifies the connection.
func ConnectDB(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	dbpool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return dbpool, nil
}

// RetryConfig bounds how transient store faults are retried. The delay
// doubles after each failed attempt.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryConfig allows three attempts with a one second base delay.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Second}
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	dbpool *pgxpool.Pool
	retry  RetryConfig
}

func NewPostgresStore(pool *pgxpool.Pool, retry RetryConfig) *PostgresStore {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &PostgresStore{dbpool: pool, retry: retry}
}

// EnsureSchema creates every target table plus the processed-file ledger.
// Tables are created in dependency order so foreign keys resolve.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.dbpool.Exec(ctx, createLedgerSQL); err != nil {
		return fmt.Errorf("error creating processed_files table: %w", err)
	}
	for _, spec := range schema.AllSpecs() {
		if _, err := s.dbpool.Exec(ctx, buildCreateTableSQL(spec)); err != nil {
			return fmt.Errorf("error creating table %s: %w", spec.Table, err)
		}
	}
	return nil
}

// BulkUpsert stages the batch into a transaction-scoped temp table with
// COPY, then merges it into the target in the same transaction. A reader
// never observes a partially applied batch, and replaying the batch leaves
// the table unchanged.
func (s *PostgresStore) BulkUpsert(ctx context.Context, spec schema.TableSpec, records []schema.Record) error {
	if len(records) == 0 {
		return nil
	}
	return s.withRetry(ctx, fmt.Sprintf("bulk upsert into %s", spec.Table), func() error {
		return s.bulkUpsertOnce(ctx, spec, records)
	})
}

func (s *PostgresStore) bulkUpsertOnce(ctx context.Context, spec schema.TableSpec, records []schema.Record) error {
	tx, err := s.dbpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stagingTable := spec.Table + "_staging"
	if _, err := tx.Exec(ctx, buildCreateStagingSQL(spec, stagingTable)); err != nil {
		return fmt.Errorf("error creating staging table %s: %w", stagingTable, err)
	}

	columnNames := append(append([]string{}, spec.Columns...), "ordinal")
	copySource := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		row := make([]any, 0, len(columnNames))
		row = append(row, records[i].Values...)
		row = append(row, int64(i))
		return row, nil
	})

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{stagingTable}, columnNames, copySource)
	if err != nil {
		return fmt.Errorf("unable to copy records to staging table %s: %w", stagingTable, err)
	}
	if copied != int64(len(records)) {
		return fmt.Errorf("staging table %s: copied %d of %d records", stagingTable, copied, len(records))
	}

	if _, err := tx.Exec(ctx, buildMergeSQL(spec, stagingTable)); err != nil {
		return fmt.Errorf("error merging staging table into %s: %w", spec.Table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// IsFileCompleted reports whether the checksum has a DONE ledger row.
func (s *PostgresStore) IsFileCompleted(ctx context.Context, checksum string) (bool, error) {
	query := `
	SELECT 1
	FROM processed_files
	WHERE checksum = $1 AND status = $2;`

	var one int
	err := s.dbpool.QueryRow(ctx, query, checksum, FileStatusDone).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error finding ledger entry by checksum: %w", err)
	}
	return true, nil
}

// MarkFileProcessing upserts a PROCESSING row for the file. A leftover row
// from an interrupted run is simply taken over.
func (s *PostgresStore) MarkFileProcessing(ctx context.Context, checksum, fileName string, byteSize int64) error {
	query := `
	INSERT INTO processed_files (checksum, file_name, byte_size, status)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (checksum)
	DO UPDATE SET file_name = EXCLUDED.file_name,
		byte_size = EXCLUDED.byte_size,
		status = EXCLUDED.status,
		processed_at = now();`

	if _, err := s.dbpool.Exec(ctx, query, checksum, fileName, byteSize, FileStatusProcessing); err != nil {
		return fmt.Errorf("error marking file %s as processing: %w", fileName, err)
	}
	return nil
}

// MarkFileCompleted promotes the ledger row to DONE with its final row
// count. Only called after the file's last batch committed.
func (s *PostgresStore) MarkFileCompleted(ctx context.Context, checksum string, rowCount int64) error {
	query := `
	UPDATE processed_files
	SET status = $2,
		row_count = $3,
		processed_at = now()
	WHERE checksum = $1;`

	tag, err := s.dbpool.Exec(ctx, query, checksum, FileStatusDone, rowCount)
	if err != nil {
		return fmt.Errorf("error marking file as completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no ledger entry for checksum %s", checksum)
	}
	return nil
}

// withRetry reruns fn with exponential backoff while the failure looks
// transient. Exhausting the attempts surfaces the last error so the caller
// can fail the file and leave it un-ledgered for the next run.
func (s *PostgresStore) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	delay := s.retry.BaseDelay

	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) || attempt == s.retry.MaxAttempts {
			break
		}

		log.Printf("Attempt %d/%d for %s failed: %v. Retrying in %s", attempt, s.retry.MaxAttempts, op, lastErr, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return lastErr
}

// isTransient classifies faults worth retrying: connection losses, admin
// shutdowns, resource exhaustion, serialization failures and deadlocks.
// Anything else (constraint violations, bad SQL) fails immediately.
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if pgconn.SafeToRetry(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := pgErr.Code
		switch {
		case len(code) >= 2 && (code[:2] == "08" || code[:2] == "53" || code[:2] == "57"):
			return true
		case code == "40001" || code == "40P01":
			return true
		}
	}
	return false
}
