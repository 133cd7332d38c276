package database

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rfdados/cnpj-pipeline/internal/schema"
)

// columnType picks the SQL type for a spec column from its declared role.
func columnType(spec schema.TableSpec, col string) string {
	for _, c := range spec.ListCols {
		if c == col {
			return "TEXT[]"
		}
	}
	for _, c := range spec.DateCols {
		if c == col {
			return "DATE"
		}
	}
	for _, c := range spec.NumericCols {
		if c == col {
			return "NUMERIC(18, 2)"
		}
	}
	return "TEXT"
}

// buildCreateTableSQL renders the DDL for one target table. Conflict-key
// columns form the primary key; rank 1 tables carry a foreign key to
// empresas. References into the code tables are deliberately not declared:
// the source data contains dangling codes and the load must accept them.
func buildCreateTableSQL(spec schema.TableSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", pgx.Identifier{spec.Table}.Sanitize())
	for _, col := range spec.Columns {
		fmt.Fprintf(&b, "\t%s %s,\n", pgx.Identifier{col}.Sanitize(), columnType(spec, col))
	}
	b.WriteString("\tdata_criacao TIMESTAMP NOT NULL DEFAULT now(),\n")
	b.WriteString("\tdata_atualizacao TIMESTAMP NOT NULL DEFAULT now(),\n")
	fmt.Fprintf(&b, "\tPRIMARY KEY (%s)", joinIdentifiers(spec.ConflictKey))
	if spec.LoadRank > 0 {
		b.WriteString(",\n\tFOREIGN KEY (cnpj_basico) REFERENCES empresas (cnpj_basico)")
	}
	b.WriteString("\n);")
	return b.String()
}

// buildMergeSQL renders the staging-to-target merge. DISTINCT ON with the
// ordinal keeps the last occurrence of a conflict key within the batch, so
// a key duplicated inside one file resolves to its final value. Non-key
// columns are replaced on conflict and data_atualizacao is refreshed.
func buildMergeSQL(spec schema.TableSpec, stagingTable string) string {
	cols := joinIdentifiers(spec.Columns)
	keys := joinIdentifiers(spec.ConflictKey)

	updates := make([]string, 0, len(spec.Columns))
	for _, col := range spec.Columns {
		if isConflictKey(spec, col) {
			continue
		}
		quoted := pgx.Identifier{col}.Sanitize()
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", quoted, quoted))
	}
	updates = append(updates, "data_atualizacao = CURRENT_TIMESTAMP")

	return fmt.Sprintf(
		`INSERT INTO %s (%s)
SELECT DISTINCT ON (%s) %s
FROM %s
ORDER BY %s, ordinal DESC
ON CONFLICT (%s)
DO UPDATE SET %s;`,
		pgx.Identifier{spec.Table}.Sanitize(), cols,
		keys, cols,
		pgx.Identifier{stagingTable}.Sanitize(),
		keys,
		keys,
		strings.Join(updates, ", "),
	)
}

// buildCreateStagingSQL renders the per-transaction staging table: same
// layout as the target minus the timestamp columns, plus an ordinal that
// records arrival order for in-batch deduplication. ON COMMIT DROP ties its
// lifetime to the batch transaction.
func buildCreateStagingSQL(spec schema.TableSpec, stagingTable string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TEMP TABLE %s (\n", pgx.Identifier{stagingTable}.Sanitize())
	for _, col := range spec.Columns {
		fmt.Fprintf(&b, "\t%s %s,\n", pgx.Identifier{col}.Sanitize(), columnType(spec, col))
	}
	b.WriteString("\tordinal BIGINT NOT NULL\n")
	b.WriteString(") ON COMMIT DROP;")
	return b.String()
}

const createLedgerSQL = `
CREATE TABLE IF NOT EXISTS processed_files (
	checksum VARCHAR(64) PRIMARY KEY,
	file_name VARCHAR(255) NOT NULL,
	byte_size BIGINT NOT NULL,
	row_count BIGINT NOT NULL DEFAULT 0,
	status VARCHAR(20) NOT NULL CHECK (status IN ('PROCESSING', 'DONE')),
	processed_at TIMESTAMP NOT NULL DEFAULT now()
);`

func isConflictKey(spec schema.TableSpec, col string) bool {
	for _, key := range spec.ConflictKey {
		if key == col {
			return true
		}
	}
	return false
}

func joinIdentifiers(cols []string) string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = pgx.Identifier{col}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
