package report

import (
	"fmt"
	"strings"
	"time"

	"dbmask/internal/pii"
	"dbmask/internal/schema"
)

// Mermaid renders s as a Markdown document holding a Mermaid ER diagram.
// Columns with detected PII carry their type and classification as the
// attribute comment.
func Mermaid(s pii.SchemaWithPII, generatedAt time.Time) string {
	var builder strings.Builder

	builder.WriteString("# Database Schema PII Report\n\n")
	builder.WriteString("```mermaid\nerDiagram\n")

	fkCount := 0
	for _, table := range s.Tables {
		builder.WriteString(fmt.Sprintf("    %s {\n", cleanTableName(table.Name)))

		for _, col := range table.Columns {
			line := fmt.Sprintf("        %s %s", formatMermaidType(col), cleanName(col.Name))
			if key := keyMarker(table, col); key != "" {
				line += " " + key
			}
			if r, ok := table.Result(col.Name); ok && r.DetectedType != pii.None {
				line += fmt.Sprintf(" \"%s %s\"", r.DetectedType, r.Classification)
			}
			builder.WriteString(line + "\n")
		}

		builder.WriteString("    }\n\n")
	}

	for _, table := range s.Tables {
		for _, fk := range table.ForeignKeys {
			fkCount++
			builder.WriteString(fmt.Sprintf("    %s %s %s : %s\n",
				cleanTableName(fk.ReferencedTable),
				determineRelationship(fk),
				cleanTableName(table.Name),
				fk.ColumnName))
		}
	}

	builder.WriteString("```\n\n")
	builder.WriteString(fmt.Sprintf("Generated on: %s\n", generatedAt.Format("2006-01-02 15:04:05")))
	builder.WriteString(fmt.Sprintf("Total Tables: %d\n", len(s.Tables)))
	builder.WriteString(fmt.Sprintf("Total Foreign Keys: %d\n", fkCount))
	builder.WriteString(fmt.Sprintf("Total PII Columns: %d\n", countPII(s)))

	return builder.String()
}

func keyMarker(table pii.TableWithPII, col schema.ColumnInfo) string {
	var keys []string
	if col.IsPrimaryKey {
		keys = append(keys, "PK")
	}
	if table.IsForeignKeyColumn(col.Name) {
		keys = append(keys, "FK")
	}
	if col.IsUnique && !col.IsPrimaryKey {
		keys = append(keys, "UK")
	}
	return strings.Join(keys, ", ")
}

func formatMermaidType(col schema.ColumnInfo) string {
	switch strings.ToLower(col.Type) {
	case "varchar", "character varying", "text", "char", "character":
		if col.MaxLength != nil {
			return fmt.Sprintf("varchar(%d)", *col.MaxLength)
		}
		return "varchar"
	case "int", "integer", "bigint", "smallint":
		return "int"
	case "decimal", "numeric":
		return "decimal"
	case "boolean", "bool", "tinyint(1)":
		return "boolean"
	case "date":
		return "date"
	case "timestamp", "datetime", "timestamp without time zone", "timestamp with time zone":
		return "timestamp"
	default:
		return cleanName(col.Type)
	}
}

func cleanTableName(name string) string {
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, ".", "_")
	return name
}

// cleanName makes a type or column name a single Mermaid token.
func cleanName(name string) string {
	return strings.ReplaceAll(cleanTableName(name), " ", "_")
}

func determineRelationship(fk schema.ForeignKey) string {
	if fk.OnDelete == schema.SetNull {
		return "|o--o{"
	}
	return "||--o{"
}

func countPII(s pii.SchemaWithPII) int {
	n := 0
	for _, t := range s.Tables {
		for _, r := range t.PIIDetection {
			if r.DetectedType != pii.None {
				n++
			}
		}
	}
	return n
}
