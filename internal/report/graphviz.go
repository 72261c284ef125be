package report

import (
	"fmt"
	"strings"

	"dbmask/internal/pii"
	"dbmask/internal/schema"
)

var fillColors = map[pii.Classification]string{
	pii.DirectIdentifier:   "lightsalmon",
	pii.IndirectIdentifier: "lightyellow",
	pii.SensitiveData:      "plum",
	pii.NonSensitive:       "lightblue",
}

// Graphviz renders s as a DOT digraph. A table is filled by the most
// sensitive classification among its columns.
func Graphviz(s pii.SchemaWithPII) string {
	var builder strings.Builder

	builder.WriteString("digraph schema {\n")
	builder.WriteString("  rankdir=TB;\n")
	builder.WriteString("  node [shape=record, style=filled];\n")
	builder.WriteString("  edge [color=gray];\n\n")

	for _, table := range s.Tables {
		builder.WriteString(fmt.Sprintf("  %s [label=\"{%s|", cleanNodeName(table.Name), escapeRecord(table.Name)))

		var fields []string
		for _, col := range table.Columns {
			field := col.Name + ": " + formatGraphvizType(col)
			if col.IsPrimaryKey {
				field = "+" + field
			}
			if r, ok := table.Result(col.Name); ok && r.DetectedType != pii.None {
				field += " [" + string(r.DetectedType) + "]"
			}
			fields = append(fields, escapeRecord(field))
		}

		builder.WriteString(strings.Join(fields, "\\l"))
		builder.WriteString(fmt.Sprintf("\\l}\", fillcolor=%s];\n", fillColors[mostSensitive(table)]))
	}

	builder.WriteString("\n")

	for _, table := range s.Tables {
		for _, fk := range table.ForeignKeys {
			builder.WriteString(fmt.Sprintf("  %s -> %s [label=\"%s\"];\n",
				cleanNodeName(fk.ReferencedTable),
				cleanNodeName(table.Name),
				fk.ColumnName))
		}
	}

	builder.WriteString("}\n")

	return builder.String()
}

func mostSensitive(t pii.TableWithPII) pii.Classification {
	rank := map[pii.Classification]int{
		pii.NonSensitive:       0,
		pii.IndirectIdentifier: 1,
		pii.SensitiveData:      2,
		pii.DirectIdentifier:   3,
	}
	best := pii.NonSensitive
	for _, r := range t.PIIDetection {
		if rank[r.Classification] > rank[best] {
			best = r.Classification
		}
	}
	return best
}

func formatGraphvizType(col schema.ColumnInfo) string {
	switch strings.ToLower(col.Type) {
	case "varchar", "character varying", "text", "char", "character":
		if col.MaxLength != nil {
			return fmt.Sprintf("VARCHAR(%d)", *col.MaxLength)
		}
		return "VARCHAR"
	case "int", "integer":
		return "INT"
	case "bigint":
		return "BIGINT"
	case "decimal", "numeric":
		return "DECIMAL"
	case "boolean", "bool":
		return "BOOL"
	case "date":
		return "DATE"
	case "timestamp", "datetime":
		return "TIMESTAMP"
	default:
		return strings.ToUpper(col.Type)
	}
}

func cleanNodeName(name string) string {
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, ".", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

// escapeRecord escapes the characters that are structural in record labels.
func escapeRecord(s string) string {
	r := strings.NewReplacer("{", "\\{", "}", "\\}", "|", "\\|", "<", "\\<", ">", "\\>", "\"", "\\\"")
	return r.Replace(s)
}
