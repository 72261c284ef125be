package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dbmask/internal/schema"
)

// ErrUnsupportedDialect is returned when no Adapter exists for a dialect tag.
var ErrUnsupportedDialect = errors.New("unsupported database dialect")

// Querier is the query-capable handle adapters run against. *sql.DB, *sql.Conn
// and *sql.Tx all satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ColumnRow is the raw per-column catalog metadata of one dialect.
type ColumnRow struct {
	Name      string
	DataType  string
	Nullable  bool
	Default   *string
	MaxLength *int
	Comment   *string
	// Unique is only reported by dialects that expose column-level key flags.
	Unique bool
}

// ForeignKeyRow is the raw catalog metadata of a single foreign key column.
type ForeignKeyRow struct {
	ColumnName       string
	ReferencedTable  string
	ReferencedColumn string
	DeleteRule       string
	UpdateRule       string
}

// Adapter hides dialect differences behind the catalog primitives the
// introspector needs. Implementations do not retry; driver errors are returned
// wrapped.
type Adapter interface {
	Dialect() schema.Dialect
	ListTables(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, table string) ([]ColumnRow, error)
	ListForeignKeys(ctx context.Context, table string) ([]ForeignKeyRow, error)
	ListPrimaryKeys(ctx context.Context, table string) ([]string, error)
}

// UniqueConstraintLister is implemented by adapters that can report
// multi-column unique constraints.
type UniqueConstraintLister interface {
	ListUniqueConstraints(ctx context.Context, table string) ([][]string, error)
}

// CheckConstraintLister is implemented by adapters that can report check
// constraint expressions.
type CheckConstraintLister interface {
	ListCheckConstraints(ctx context.Context, table string) ([]string, error)
}

// NewAdapter returns the Adapter for dialect. schemaName scopes PostgreSQL
// catalog queries and defaults to "public"; MySQL always uses DATABASE().
func NewAdapter(dialect schema.Dialect, q Querier, schemaName string) (Adapter, error) {
	switch dialect {
	case schema.PostgreSQL:
		return NewPostgreSQLAdapter(q, schemaName), nil
	case schema.MySQL:
		return NewMySQLAdapter(q), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, dialect)
	}
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullIntPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	i := int(ni.Int64)
	return &i
}

// commentPtr treats an empty comment as absent.
func commentPtr(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	s := ns.String
	return &s
}
