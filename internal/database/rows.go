package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dbmask/internal/schema"

	"github.com/lib/pq"
)

// RowSet holds query results in column order. A nil cell is SQL NULL.
type RowSet struct {
	Columns []string
	Rows    [][]any
}

// QuoteIdentifier quotes a table or column name for dialect.
func QuoteIdentifier(dialect schema.Dialect, name string) string {
	if dialect == schema.MySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return pq.QuoteIdentifier(name)
}

// QualifiedTable quotes table for dialect, prefixed with schemaName on
// PostgreSQL. MySQL tables resolve against the connection's database.
func QualifiedTable(dialect schema.Dialect, schemaName, table string) string {
	if dialect == schema.MySQL || schemaName == "" {
		return QuoteIdentifier(dialect, table)
	}
	return QuoteIdentifier(dialect, schemaName) + "." + QuoteIdentifier(dialect, table)
}

// ReadRows selects up to limit rows of table in schemaName. limit <= 0 reads
// every row.
func ReadRows(ctx context.Context, q Querier, dialect schema.Dialect, schemaName, table string, limit int) (*RowSet, error) {
	query := "SELECT * FROM " + QualifiedTable(dialect, schemaName, table)
	var args []any
	if limit > 0 {
		if dialect == schema.MySQL {
			query += " LIMIT ?"
		} else {
			query += " LIMIT $1"
		}
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %q: %w", table, err)
	}
	defer rows.Close()

	set, err := scanRowSet(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan rows of %q: %w", table, err)
	}
	return set, nil
}

func scanRowSet(rows *sql.Rows) (*RowSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	set := &RowSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		set.Rows = append(set.Rows, values)
	}

	return set, rows.Err()
}
