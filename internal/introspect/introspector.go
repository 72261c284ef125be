// Package introspect builds a dialect-independent schema snapshot from a
// database.Adapter.
package introspect

import (
	"context"
	"fmt"
	"strings"

	"dbmask/internal/database"
	"dbmask/internal/schema"
	"dbmask/pkg/config"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Introspector assembles schema.DatabaseSchema snapshots. Tables are fetched
// concurrently, at most Workers at a time; the first failure aborts the whole
// snapshot.
type Introspector struct {
	adapter database.Adapter
	cfg     config.SchemaConfig
	logger  *zap.Logger
}

func New(adapter database.Adapter, cfg config.SchemaConfig, logger *zap.Logger) *Introspector {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Introspector{adapter: adapter, cfg: cfg, logger: logger}
}

// Introspect returns one snapshot of every base table the adapter lists,
// filtered by the include/exclude lists. Table order follows the adapter's
// listing.
func (i *Introspector) Introspect(ctx context.Context) (*schema.DatabaseSchema, error) {
	names, err := i.adapter.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	names = lo.Filter(names, func(name string, _ int) bool {
		if len(i.cfg.IncludeTables) > 0 && !contains(i.cfg.IncludeTables, name) {
			return false
		}
		return !contains(i.cfg.ExcludeTables, name)
	})

	tables := make([]schema.TableInfo, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.Workers)

	for idx, name := range names {
		g.Go(func() error {
			table, err := i.table(gctx, name)
			if err != nil {
				return err
			}
			tables[idx] = *table
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		i.logger.Error("Schema introspection failed", zap.String("dialect", string(i.adapter.Dialect())), zap.Error(err))
		return nil, err
	}

	i.logger.Info("Schema introspected",
		zap.String("dialect", string(i.adapter.Dialect())),
		zap.Int("tables", len(tables)))

	return &schema.DatabaseSchema{Tables: tables}, nil
}

func (i *Introspector) table(ctx context.Context, name string) (*schema.TableInfo, error) {
	columnRows, err := i.adapter.ListColumns(ctx, name)
	if err != nil {
		return nil, err
	}

	fkRows, err := i.adapter.ListForeignKeys(ctx, name)
	if err != nil {
		return nil, err
	}

	primaryKeys, err := i.adapter.ListPrimaryKeys(ctx, name)
	if err != nil {
		return nil, err
	}

	uniques, err := i.uniqueConstraints(ctx, name)
	if err != nil {
		return nil, err
	}

	checks, err := i.checkConstraints(ctx, name)
	if err != nil {
		return nil, err
	}

	table := &schema.TableInfo{
		Name:              name,
		Columns:           make([]schema.ColumnInfo, 0, len(columnRows)),
		ForeignKeys:       make([]schema.ForeignKey, 0, len(fkRows)),
		PrimaryKeys:       nonNil(primaryKeys),
		UniqueConstraints: uniques,
		CheckConstraints:  checks,
	}

	for _, row := range columnRows {
		table.Columns = append(table.Columns, schema.ColumnInfo{
			Name:         row.Name,
			Type:         row.DataType,
			Nullable:     row.Nullable,
			DefaultValue: row.Default,
			IsPrimaryKey: lo.Contains(primaryKeys, row.Name),
			IsUnique:     row.Unique,
			MaxLength:    row.MaxLength,
			Comment:      row.Comment,
		})
	}

	for _, row := range fkRows {
		if table.Column(row.ColumnName) == nil {
			return nil, fmt.Errorf("foreign key column %q not found in table %q", row.ColumnName, name)
		}
		table.ForeignKeys = append(table.ForeignKeys, schema.ForeignKey{
			ColumnName:       row.ColumnName,
			ReferencedTable:  row.ReferencedTable,
			ReferencedColumn: row.ReferencedColumn,
			OnDelete:         schema.ParseReferentialAction(row.DeleteRule),
			OnUpdate:         schema.ParseReferentialAction(row.UpdateRule),
		})
	}

	i.logger.Debug("Table introspected",
		zap.String("table", name),
		zap.Int("columns", len(table.Columns)),
		zap.Int("foreign_keys", len(table.ForeignKeys)))

	return table, nil
}

// uniqueConstraints returns an empty sequence when the adapter cannot list
// unique constraints; that means "not introspected", not "none exist".
func (i *Introspector) uniqueConstraints(ctx context.Context, table string) ([][]string, error) {
	lister, ok := i.adapter.(database.UniqueConstraintLister)
	if !ok {
		i.logger.Debug("Unique constraints not introspected", zap.String("dialect", string(i.adapter.Dialect())), zap.String("table", table))
		return [][]string{}, nil
	}
	groups, err := lister.ListUniqueConstraints(ctx, table)
	if err != nil {
		return nil, err
	}
	return nonNil(groups), nil
}

// checkConstraints follows the same convention as uniqueConstraints.
func (i *Introspector) checkConstraints(ctx context.Context, table string) ([]string, error) {
	lister, ok := i.adapter.(database.CheckConstraintLister)
	if !ok {
		i.logger.Debug("Check constraints not introspected", zap.String("dialect", string(i.adapter.Dialect())), zap.String("table", table))
		return []string{}, nil
	}
	checks, err := lister.ListCheckConstraints(ctx, table)
	if err != nil {
		return nil, err
	}
	return nonNil(checks), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
