package maestro

import (
	"context"
	"fmt"
	"strings"
)

// pgTypes maps BigQuery column types to PostgreSQL types.
// https://cloud.google.com/bigquery/docs/reference/rest/v2/tables
// RECORD and STRUCT are not supported.
var pgTypes = map[string]string{
	"STRING":    "TEXT",
	"BYTES":     "BYTEA",
	"INTEGER":   "BIGINT",
	"INT64":     "BIGINT",
	"FLOAT":     "DOUBLE PRECISION",
	"FLOAT64":   "DOUBLE PRECISION",
	"BOOLEAN":   "BOOLEAN",
	"BOOL":      "BOOLEAN",
	"TIMESTAMP": "TIMESTAMP WITH TIME ZONE",
	"DATE":      "DATE",
	"TIME":      "TIME",
	"DATETIME":  "TIMESTAMP",
}

// Schema returns the table's BigQuery schema fields, fetching and
// caching the metadata on first call.
func (t *Table) Schema(ctx context.Context) ([]BQField, error) {
	if t.bqInfo == nil {
		info, err := t.api.BQInfo(ctx, t.id)
		if err != nil {
			return nil, err
		}
		t.bqInfo = info
	}
	return t.bqInfo.Schema.Fields, nil
}

// PostgresDDL returns a PostgreSQL CREATE TABLE statement matching the
// table's schema. REPEATED columns and RECORD/STRUCT types are not
// supported.
func (t *Table) PostgresDDL(ctx context.Context, name string, ifNotExists bool) (string, error) {
	fields, err := t.Schema(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(name)
	b.WriteString(" (\n")

	columns := make([]string, 0, len(fields))
	for _, field := range fields {
		pgType, ok := pgTypes[field.Type]
		if !ok {
			return "", fmt.Errorf("maestro: unsupported column type %s for %s", field.Type, field.Name)
		}
		if field.Mode == "REPEATED" {
			return "", fmt.Errorf("maestro: repeated column %s not supported", field.Name)
		}
		column := fmt.Sprintf("    %s %s", field.Name, pgType)
		if field.Mode == "REQUIRED" {
			column += " NOT NULL"
		}
		columns = append(columns, column)
	}

	b.WriteString(strings.Join(columns, ",\n"))
	b.WriteString("\n);")
	return b.String(), nil
}
