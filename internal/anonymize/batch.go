package anonymize

import (
	"context"
	"fmt"

	"dbmask/internal/database"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Batch anonymizes whole row sets. Rows are split into chunks that a fixed
// pool of workers processes; every worker owns its own Engine.
type Batch struct {
	Workers   int
	ChunkSize int
	// Seed, when non-zero, seeds worker i's engine with Seed+i.
	Seed   uint64
	Logger *zap.Logger
}

type chunk struct {
	start, end int
}

// Apply returns a new RowSet with every configured column replaced. Columns
// without a config are copied unchanged and set is never modified. All
// configs are validated before any row is touched.
func (b *Batch) Apply(ctx context.Context, set *database.RowSet, configs []StrategyConfig) (*database.RowSet, error) {
	plan, err := b.columnPlan(set.Columns, configs)
	if err != nil {
		return nil, err
	}

	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := max(b.Workers, 1)
	size := b.ChunkSize
	if size <= 0 {
		size = 500
	}

	out := &database.RowSet{
		Columns: append([]string(nil), set.Columns...),
		Rows:    make([][]any, len(set.Rows)),
	}

	chunks := make(chan chunk)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(chunks)
		for start := 0; start < len(set.Rows); start += size {
			select {
			case chunks <- chunk{start: start, end: min(start+size, len(set.Rows))}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := range workers {
		g.Go(func() error {
			engine := b.newEngine(w)
			for c := range chunks {
				if err := gctx.Err(); err != nil {
					return err
				}
				for r := c.start; r < c.end; r++ {
					row, err := applyRow(engine, set.Rows[r], plan)
					if err != nil {
						return fmt.Errorf("row %d: %w", r, err)
					}
					out.Rows[r] = row
				}
				logger.Debug("Anonymized chunk",
					zap.Int("worker", w),
					zap.Int("start", c.start),
					zap.Int("end", c.end))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Batch) newEngine(worker int) *Engine {
	if b.Seed == 0 {
		return NewEngine()
	}
	return NewEngine(WithSeed(b.Seed + uint64(worker)))
}

// columnPlan lines configs up with column positions. A nil entry means keep.
func (b *Batch) columnPlan(columns []string, configs []StrategyConfig) ([]*StrategyConfig, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	plan := make([]*StrategyConfig, len(columns))
	for i := range configs {
		cfg := configs[i]
		if _, err := ParseStrategy(string(cfg.Strategy)); err != nil {
			return nil, fmt.Errorf("column %q: %w", cfg.ColumnName, err)
		}
		pos, ok := index[cfg.ColumnName]
		if !ok {
			return nil, fmt.Errorf("strategy configured for unknown column %q", cfg.ColumnName)
		}
		plan[pos] = &cfg
	}
	return plan, nil
}

func applyRow(engine *Engine, row []any, plan []*StrategyConfig) ([]any, error) {
	out := make([]any, len(row))
	for i, v := range row {
		if i >= len(plan) || plan[i] == nil {
			out[i] = v
			continue
		}
		nv, err := engine.Apply(v, *plan[i])
		if err != nil {
			return nil, err
		}
		out[i] = nv
	}
	return out, nil
}
