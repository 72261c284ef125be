package pii

import "dbmask/internal/schema"

// TableWithPII is a table together with its per-column detection results.
type TableWithPII struct {
	schema.TableInfo
	PIIDetection []Result `json:"piiDetection"`
}

// SchemaWithPII is the combined shape handed to presentation layers:
// {"tables": [{...table fields, "piiDetection": [...]}]}.
type SchemaWithPII struct {
	Tables []TableWithPII `json:"tables"`
}

// Annotate runs d over every table of s.
func (d *Detector) Annotate(s *schema.DatabaseSchema) SchemaWithPII {
	out := SchemaWithPII{Tables: make([]TableWithPII, 0, len(s.Tables))}
	for _, t := range s.Tables {
		out.Tables = append(out.Tables, TableWithPII{
			TableInfo:    t,
			PIIDetection: d.Detect(t.Columns),
		})
	}
	return out
}

// Result returns the detection result of column, if present.
func (t TableWithPII) Result(column string) (Result, bool) {
	for _, r := range t.PIIDetection {
		if r.ColumnName == column {
			return r, true
		}
	}
	return Result{}, false
}
