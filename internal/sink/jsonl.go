package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"dbmask/internal/database"
	"dbmask/internal/schema"
)

// TableKey holds the source table name in every JSON line.
const TableKey = "_table"

// JSONLines writes one JSON object per row.
type JSONLines struct {
	w      *bufio.Writer
	closer io.Closer
	closed bool
}

// NewJSONLines writes to w. w is closed by Close when it is an io.Closer
// other than stdout.
func NewJSONLines(w io.Writer) *JSONLines {
	j := &JSONLines{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok && !isStdStream(w) {
		j.closer = c
	}
	return j
}

func (j *JSONLines) WriteTable(ctx context.Context, table schema.TableInfo, set *database.RowSet) error {
	enc := json.NewEncoder(j.w)
	for i, row := range set.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}

		obj := make(map[string]any, len(row)+1)
		obj[TableKey] = table.Name
		for c, v := range row {
			obj[set.Columns[c]] = jsonValue(v)
		}
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i, table.Name, err)
		}
	}
	return j.w.Flush()
}

// Close flushes buffered rows and closes the underlying writer. Later calls
// are no-ops.
func (j *JSONLines) Close() error {
	if j.closed {
		return nil
	}
	j.closed = true

	if err := j.w.Flush(); err != nil {
		return err
	}
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}

func jsonValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return v
	}
}

func isStdStream(w io.Writer) bool {
	return w == os.Stdout || w == os.Stderr
}
