// Package report renders a schema with PII detections for people to read.
package report

import (
	"fmt"
	"strings"

	"dbmask/internal/pii"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)

	classificationStyles = map[pii.Classification]lipgloss.Style{
		pii.DirectIdentifier:   cellStyle.Foreground(lipgloss.Color("9")),
		pii.IndirectIdentifier: cellStyle.Foreground(lipgloss.Color("11")),
		pii.SensitiveData:      cellStyle.Foreground(lipgloss.Color("13")),
		pii.NonSensitive:       cellStyle.Foreground(lipgloss.Color("8")),
	}
)

const classificationColumn = 3

// Text renders one table per database table listing each column's detection.
func Text(s pii.SchemaWithPII) string {
	var b strings.Builder

	for i, t := range s.Tables {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(titleStyle.Render(t.Name))
		b.WriteString("\n")

		rows := make([][]string, 0, len(t.Columns))
		classes := make([]pii.Classification, 0, len(t.Columns))
		for _, col := range t.Columns {
			r, _ := t.Result(col.Name)
			rows = append(rows, []string{
				col.Name,
				col.Type,
				string(r.DetectedType),
				string(r.Classification),
				string(r.Confidence),
				r.Reason,
			})
			classes = append(classes, r.Classification)
		}

		tbl := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("COLUMN", "TYPE", "PII", "CLASSIFICATION", "CONFIDENCE", "REASON").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if col == classificationColumn && row >= 0 && row < len(classes) {
					if st, ok := classificationStyles[classes[row]]; ok {
						return st
					}
				}
				return cellStyle
			})

		b.WriteString(tbl.String())
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("\n%d tables, %d PII columns\n", len(s.Tables), countPII(s)))
	return b.String()
}
