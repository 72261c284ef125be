package schema

import (
	"fmt"
	"strings"
)

// Dialect identifies a supported catalog/introspection variant.
type Dialect string

const (
	PostgreSQL Dialect = "postgres"
	MySQL      Dialect = "mysql"
)

// ParseDialect maps a dialect tag to a Dialect. "postgresql" is accepted as an
// alias of "postgres". There is no default dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql":
		return PostgreSQL, nil
	case "mysql":
		return MySQL, nil
	default:
		return "", fmt.Errorf("unsupported database dialect %q (supported: postgres, mysql)", s)
	}
}

type DatabaseSchema struct {
	Tables []TableInfo `json:"tables"`
}

type TableInfo struct {
	Name              string       `json:"name"`
	Columns           []ColumnInfo `json:"columns"`
	ForeignKeys       []ForeignKey `json:"foreignKeys"`
	PrimaryKeys       []string     `json:"primaryKeys"`
	UniqueConstraints [][]string   `json:"uniqueConstraints"`
	CheckConstraints  []string     `json:"checkConstraints"`
}

type ColumnInfo struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Nullable     bool    `json:"nullable"`
	DefaultValue *string `json:"defaultValue"`
	IsPrimaryKey bool    `json:"isPrimaryKey"`
	IsUnique     bool    `json:"isUnique"`
	MaxLength    *int    `json:"maxLength"`
	Comment      *string `json:"comment"`
}

type ForeignKey struct {
	ColumnName       string            `json:"columnName"`
	ReferencedTable  string            `json:"referencedTable"`
	ReferencedColumn string            `json:"referencedColumn"`
	OnDelete         ReferentialAction `json:"onDelete"`
	OnUpdate         ReferentialAction `json:"onUpdate"`
}

// ReferentialAction is the ON DELETE / ON UPDATE rule of a foreign key.
type ReferentialAction string

const (
	Cascade       ReferentialAction = "CASCADE"
	SetNull       ReferentialAction = "SET NULL"
	SetDefault    ReferentialAction = "SET DEFAULT"
	Restrict      ReferentialAction = "RESTRICT"
	NoAction      ReferentialAction = "NO ACTION"
	UnknownAction ReferentialAction = "UNKNOWN"
)

// ParseReferentialAction normalizes a catalog rule string. Anything outside the
// standard actions, including an empty rule, becomes UnknownAction.
func ParseReferentialAction(rule string) ReferentialAction {
	switch a := ReferentialAction(strings.ToUpper(strings.TrimSpace(rule))); a {
	case Cascade, SetNull, SetDefault, Restrict, NoAction:
		return a
	default:
		return UnknownAction
	}
}

// Table returns the table with the given name, or nil.
func (s *DatabaseSchema) Table(name string) *TableInfo {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Column returns the column with the given name, or nil.
func (t *TableInfo) Column(name string) *ColumnInfo {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// IsForeignKeyColumn reports whether the column takes part in a foreign key of t.
func (t *TableInfo) IsForeignKeyColumn(name string) bool {
	for _, fk := range t.ForeignKeys {
		if fk.ColumnName == name {
			return true
		}
	}
	return false
}

// ReferencedColumns returns every table.column pair that some foreign key in the
// schema points at, keyed as "table.column".
func (s *DatabaseSchema) ReferencedColumns() map[string]bool {
	refs := make(map[string]bool)
	for _, t := range s.Tables {
		for _, fk := range t.ForeignKeys {
			refs[fk.ReferencedTable+"."+fk.ReferencedColumn] = true
		}
	}
	return refs
}
