package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dbmask/internal/database"
	"dbmask/internal/schema"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite writes every table into a single SQLite database file.
type SQLite struct {
	db     *sql.DB
	closed bool
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite output: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open sqlite output: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) WriteTable(ctx context.Context, table schema.TableInfo, set *database.RowSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	name := quote(table.Name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", table.Name, err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(table, set.Columns)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table.Name, err)
	}

	if len(set.Columns) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(set.Columns)), ", ")
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", name, placeholders))
		if err != nil {
			return fmt.Errorf("failed to prepare insert into %s: %w", table.Name, err)
		}
		defer stmt.Close()

		for i, row := range set.Rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return fmt.Errorf("failed to insert row %d into %s: %w", i, table.Name, err)
			}
		}
	}

	return tx.Commit()
}

// Tables lists the tables present in the output file.
func (s *SQLite) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT name
        FROM sqlite_master
        WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
        ORDER BY name
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Columns returns the declared column types of table, in column order.
func (s *SQLite) Columns(ctx context.Context, table string) ([]schema.ColumnInfo, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quote(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.ColumnInfo
	for rows.Next() {
		var col schema.ColumnInfo
		var cid, notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}

		col.Nullable = notNull == 0
		col.IsPrimaryKey = pk > 0
		if defaultValue.Valid {
			col.DefaultValue = &defaultValue.String
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// Close closes the output database. Later calls are no-ops.
func (s *SQLite) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// createTableSQL declares no constraints: hashed keys stay unique but nullified
// columns may no longer satisfy NOT NULL.
func createTableSQL(table schema.TableInfo, columns []string) string {
	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		typ := ""
		if col := table.Column(c); col != nil {
			typ = " " + Affinity(col.Type)
		}
		defs = append(defs, quote(c)+typ)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quote(table.Name), strings.Join(defs, ", "))
}

// Affinity maps a source column type to a SQLite type affinity.
func Affinity(sourceType string) string {
	t := strings.ToLower(sourceType)
	switch {
	case strings.Contains(t, "int"):
		return "INTEGER"
	case strings.Contains(t, "char"), strings.Contains(t, "text"), strings.Contains(t, "clob"):
		return "TEXT"
	case strings.Contains(t, "blob"), strings.Contains(t, "bytea"), strings.Contains(t, "binary"):
		return "BLOB"
	case strings.Contains(t, "real"), strings.Contains(t, "floa"), strings.Contains(t, "doub"):
		return "REAL"
	default:
		return "NUMERIC"
	}
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
