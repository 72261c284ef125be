package database

import (
	"context"
	"database/sql"
	"fmt"

	"dbmask/internal/schema"
)

// MySQLAdapter reads information_schema scoped to DATABASE(). It reports
// unique constraints but not check constraints, which older servers do not
// expose.
type MySQLAdapter struct {
	db Querier
}

func NewMySQLAdapter(q Querier) *MySQLAdapter {
	return &MySQLAdapter{db: q}
}

func (m *MySQLAdapter) Dialect() schema.Dialect {
	return schema.MySQL
}

func (m *MySQLAdapter) ListTables(ctx context.Context) ([]string, error) {
	query := `
        SELECT table_name
        FROM information_schema.tables
        WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
        ORDER BY table_name
    `

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	tables, err := scanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan tables: %w", err)
	}
	return tables, nil
}

func (m *MySQLAdapter) ListColumns(ctx context.Context, table string) ([]ColumnRow, error) {
	query := `
        SELECT
            column_name,
            data_type,
            is_nullable,
            column_default,
            character_maximum_length,
            column_key,
            column_comment
        FROM information_schema.columns
        WHERE table_schema = DATABASE() AND table_name = ?
        ORDER BY ordinal_position
    `

	rows, err := m.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns for %q: %w", table, err)
	}
	defer rows.Close()

	var columns []ColumnRow
	for rows.Next() {
		var col ColumnRow
		var nullable, columnKey string
		var defaultValue, comment sql.NullString
		var length sql.NullInt64

		if err := rows.Scan(
			&col.Name,
			&col.DataType,
			&nullable,
			&defaultValue,
			&length,
			&columnKey,
			&comment,
		); err != nil {
			return nil, fmt.Errorf("failed to scan column of %q: %w", table, err)
		}

		col.Nullable = nullable == "YES"
		col.Unique = columnKey == "UNI"
		col.Default = nullStringPtr(defaultValue)
		col.MaxLength = nullIntPtr(length)
		col.Comment = commentPtr(comment)
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (m *MySQLAdapter) ListForeignKeys(ctx context.Context, table string) ([]ForeignKeyRow, error) {
	query := `
        SELECT
            kcu.column_name,
            kcu.referenced_table_name,
            kcu.referenced_column_name,
            rc.delete_rule,
            rc.update_rule
        FROM information_schema.key_column_usage kcu
        JOIN information_schema.referential_constraints rc
            ON rc.constraint_schema = kcu.constraint_schema
            AND rc.constraint_name = kcu.constraint_name
        WHERE kcu.table_schema = DATABASE()
            AND kcu.table_name = ?
            AND kcu.referenced_table_name IS NOT NULL
        ORDER BY kcu.constraint_name, kcu.ordinal_position
    `

	rows, err := m.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list foreign keys for %q: %w", table, err)
	}
	defer rows.Close()

	var fks []ForeignKeyRow
	for rows.Next() {
		var fk ForeignKeyRow
		if err := rows.Scan(
			&fk.ColumnName,
			&fk.ReferencedTable,
			&fk.ReferencedColumn,
			&fk.DeleteRule,
			&fk.UpdateRule,
		); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key of %q: %w", table, err)
		}
		fks = append(fks, fk)
	}

	return fks, rows.Err()
}

func (m *MySQLAdapter) ListPrimaryKeys(ctx context.Context, table string) ([]string, error) {
	query := `
        SELECT column_name
        FROM information_schema.key_column_usage
        WHERE table_schema = DATABASE()
            AND table_name = ?
            AND constraint_name = 'PRIMARY'
        ORDER BY ordinal_position
    `

	rows, err := m.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list primary keys for %q: %w", table, err)
	}
	pks, err := scanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan primary keys of %q: %w", table, err)
	}
	return pks, nil
}

func (m *MySQLAdapter) ListUniqueConstraints(ctx context.Context, table string) ([][]string, error) {
	query := `
        SELECT tc.constraint_name, kcu.column_name
        FROM information_schema.table_constraints tc
        JOIN information_schema.key_column_usage kcu
            ON tc.constraint_schema = kcu.constraint_schema
            AND tc.constraint_name = kcu.constraint_name
            AND tc.table_name = kcu.table_name
        WHERE tc.constraint_type = 'UNIQUE'
            AND tc.table_schema = DATABASE()
            AND tc.table_name = ?
        ORDER BY tc.constraint_name, kcu.ordinal_position
    `

	rows, err := m.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list unique constraints for %q: %w", table, err)
	}
	groups, err := scanConstraintGroups(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan unique constraints of %q: %w", table, err)
	}
	return groups, nil
}
