package database

import (
	"context"
	"database/sql"
	"fmt"

	"dbmask/internal/schema"
)

type PostgreSQLAdapter struct {
	db     Querier
	schema string
}

func NewPostgreSQLAdapter(q Querier, schemaName string) *PostgreSQLAdapter {
	if schemaName == "" {
		schemaName = "public"
	}
	return &PostgreSQLAdapter{db: q, schema: schemaName}
}

func (p *PostgreSQLAdapter) Dialect() schema.Dialect {
	return schema.PostgreSQL
}

func (p *PostgreSQLAdapter) ListTables(ctx context.Context) ([]string, error) {
	query := `
        SELECT table_name
        FROM information_schema.tables
        WHERE table_schema = $1 AND table_type = 'BASE TABLE'
        ORDER BY table_name
    `

	rows, err := p.db.QueryContext(ctx, query, p.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	tables, err := scanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan tables: %w", err)
	}
	return tables, nil
}

func (p *PostgreSQLAdapter) ListColumns(ctx context.Context, table string) ([]ColumnRow, error) {
	query := `
        SELECT
            c.column_name,
            c.data_type,
            c.is_nullable = 'YES' AS is_nullable,
            c.column_default,
            c.character_maximum_length,
            pgd.description AS column_comment
        FROM information_schema.columns c
        LEFT JOIN pg_catalog.pg_statio_all_tables st
            ON c.table_schema = st.schemaname AND c.table_name = st.relname
        LEFT JOIN pg_catalog.pg_description pgd
            ON pgd.objoid = st.relid AND pgd.objsubid = c.ordinal_position
        WHERE c.table_schema = $1 AND c.table_name = $2
        ORDER BY c.ordinal_position
    `

	rows, err := p.db.QueryContext(ctx, query, p.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns for %q: %w", table, err)
	}
	defer rows.Close()

	var columns []ColumnRow
	for rows.Next() {
		var col ColumnRow
		var defaultValue, comment sql.NullString
		var length sql.NullInt64

		if err := rows.Scan(
			&col.Name,
			&col.DataType,
			&col.Nullable,
			&defaultValue,
			&length,
			&comment,
		); err != nil {
			return nil, fmt.Errorf("failed to scan column of %q: %w", table, err)
		}

		col.Default = nullStringPtr(defaultValue)
		col.MaxLength = nullIntPtr(length)
		col.Comment = commentPtr(comment)
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (p *PostgreSQLAdapter) ListForeignKeys(ctx context.Context, table string) ([]ForeignKeyRow, error) {
	// conkey and confkey are parallel arrays; unnesting them together keeps
	// composite keys paired by position.
	query := `
        SELECT
            a.attname AS column_name,
            rt.relname AS referenced_table,
            ra.attname AS referenced_column,
            CASE con.confdeltype
                WHEN 'c' THEN 'CASCADE'
                WHEN 'n' THEN 'SET NULL'
                WHEN 'd' THEN 'SET DEFAULT'
                WHEN 'r' THEN 'RESTRICT'
                ELSE 'NO ACTION'
            END AS delete_rule,
            CASE con.confupdtype
                WHEN 'c' THEN 'CASCADE'
                WHEN 'n' THEN 'SET NULL'
                WHEN 'd' THEN 'SET DEFAULT'
                WHEN 'r' THEN 'RESTRICT'
                ELSE 'NO ACTION'
            END AS update_rule
        FROM pg_constraint con
        JOIN pg_class t ON t.oid = con.conrelid
        JOIN pg_namespace n ON n.oid = t.relnamespace
        JOIN pg_class rt ON rt.oid = con.confrelid
        CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, refattnum, pos)
        JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
        JOIN pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refattnum
        WHERE con.contype = 'f'
            AND n.nspname = $1
            AND t.relname = $2
        ORDER BY con.conname, k.pos
    `

	rows, err := p.db.QueryContext(ctx, query, p.schema, table)
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

func (p *PostgreSQLAdapter) ListPrimaryKeys(ctx context.Context, table string) ([]string, error) {
	query := `
        SELECT a.attname
        FROM pg_index i
        JOIN pg_class c ON c.oid = i.indrelid
        JOIN pg_namespace n ON n.oid = c.relnamespace
        JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
        WHERE n.nspname = $1 AND c.relname = $2 AND i.indisprimary
        ORDER BY array_position(i.indkey::int2[], a.attnum)
    `

	rows, err := p.db.QueryContext(ctx, query, p.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list primary keys for %q: %w", table, err)
	}
	pks, err := scanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan primary keys of %q: %w", table, err)
	}
	return pks, nil
}

// ListUniqueConstraints returns the column groups of every UNIQUE constraint,
// in constraint name order.
func (p *PostgreSQLAdapter) ListUniqueConstraints(ctx context.Context, table string) ([][]string, error) {
	query := `
        SELECT tc.constraint_name, kcu.column_name
        FROM information_schema.table_constraints tc
        JOIN information_schema.key_column_usage kcu
            ON tc.constraint_name = kcu.constraint_name
            AND tc.table_schema = kcu.table_schema
        WHERE tc.constraint_type = 'UNIQUE'
            AND tc.table_schema = $1
            AND tc.table_name = $2
        ORDER BY tc.constraint_name, kcu.ordinal_position
    `

	rows, err := p.db.QueryContext(ctx, query, p.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list unique constraints for %q: %w", table, err)
	}
	groups, err := scanConstraintGroups(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan unique constraints of %q: %w", table, err)
	}
	return groups, nil
}

// ListCheckConstraints returns check constraint definitions as printed by
// pg_get_constraintdef, e.g. "CHECK ((price > 0))". NOT NULL checks are not
// included.
func (p *PostgreSQLAdapter) ListCheckConstraints(ctx context.Context, table string) ([]string, error) {
	query := `
        SELECT pg_get_constraintdef(con.oid)
        FROM pg_constraint con
        JOIN pg_class c ON c.oid = con.conrelid
        JOIN pg_namespace n ON n.oid = c.relnamespace
        WHERE con.contype = 'c' AND n.nspname = $1 AND c.relname = $2
        ORDER BY con.conname
    `

	rows, err := p.db.QueryContext(ctx, query, p.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list check constraints for %q: %w", table, err)
	}
	checks, err := scanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan check constraints of %q: %w", table, err)
	}
	return checks, nil
}

// scanConstraintGroups folds (constraint, column) rows ordered by constraint
// into one column group per constraint.
func scanConstraintGroups(rows *sql.Rows) ([][]string, error) {
	defer rows.Close()

	var groups [][]string
	var current string
	for rows.Next() {
		var name, column string
		if err := rows.Scan(&name, &column); err != nil {
			return nil, err
		}
		if len(groups) == 0 || name != current {
			groups = append(groups, nil)
			current = name
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], column)
	}
	return groups, rows.Err()
}
