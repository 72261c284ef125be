// Package sink writes anonymized tables to their destination.
package sink

import (
	"context"
	"fmt"
	"os"

	"dbmask/internal/database"
	"dbmask/internal/schema"
)

type Sink interface {
	// WriteTable replaces any previous copy of table with set.
	WriteTable(ctx context.Context, table schema.TableInfo, set *database.RowSet) error
	Close() error
}

// Open returns the sink named kind writing to output. "-" sends jsonl to stdout.
func Open(kind, output string) (Sink, error) {
	switch kind {
	case "sqlite":
		return OpenSQLite(output)
	case "jsonl":
		if output == "-" {
			return NewJSONLines(os.Stdout), nil
		}
		f, err := os.Create(output)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		return NewJSONLines(f), nil
	default:
		return nil, fmt.Errorf("unsupported sink: %s", kind)
	}
}
