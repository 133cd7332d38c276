package database

import (
	"context"

	"github.com/rfdados/cnpj-pipeline/internal/schema"
)

// Ledger statuses for processed_files rows. A file that never reaches DONE
// is retried from scratch on the next run; there is no failed terminal
// state.
const (
	FileStatusProcessing = "PROCESSING"
	FileStatusDone       = "DONE"
)

// Store is the target-store capability the ingestion engine depends on.
// Backend selection is a construction-time decision, never global state.
type Store interface {
	// EnsureSchema creates the target tables and the processed-file ledger
	// if they do not exist.
	EnsureSchema(ctx context.Context) error

	// BulkUpsert writes a batch atomically: every record either lands (new
	// rows inserted, existing conflict keys updated) or none do. Applying
	// the same batch twice leaves the table unchanged.
	BulkUpsert(ctx context.Context, spec schema.TableSpec, records []schema.Record) error

	// IsFileCompleted reports whether a file identified by its content
	// checksum has been fully loaded.
	IsFileCompleted(ctx context.Context, checksum string) (bool, error)

	// MarkFileProcessing records that a file's load has started.
	MarkFileProcessing(ctx context.Context, checksum, fileName string, byteSize int64) error

	// MarkFileCompleted records a fully loaded file. Callers must only
	// invoke it after every batch of that file has committed.
	MarkFileCompleted(ctx context.Context, checksum string, rowCount int64) error
}
