// Package plan turns detection results into per-column anonymization
// policies that callers can then override.
package plan

import (
	"fmt"
	"strings"

	"dbmask/internal/anonymize"
	"dbmask/internal/pii"
	"dbmask/internal/schema"
	"dbmask/pkg/config"

	"github.com/samber/lo"
)

// Plan maps a table name to its column strategies in column order.
type Plan map[string][]anonymize.StrategyConfig

// Build suggests strategies for every table of s and then applies rules.
func Build(s pii.SchemaWithPII, rules []config.Rule) (Plan, error) {
	referenced := referencedColumns(s)

	p := make(Plan, len(s.Tables))
	for _, t := range s.Tables {
		configs, err := ApplyRules(t.Name, Suggest(t, referenced), rules)
		if err != nil {
			return nil, err
		}
		p[t.Name] = configs
	}
	return p, nil
}

// Suggest picks a strategy per column. Key columns, and columns other tables
// point at, are hashed so relationships survive. Everything else follows the
// column's classification.
func Suggest(t pii.TableWithPII, referenced map[string]bool) []anonymize.StrategyConfig {
	return lo.Map(t.Columns, func(c schema.ColumnInfo, _ int) anonymize.StrategyConfig {
		cfg := anonymize.StrategyConfig{
			ColumnName: c.Name,
			DataType:   c.Type,
			Strategy:   anonymize.KeepOriginal,
		}

		switch {
		case c.IsPrimaryKey, t.IsForeignKeyColumn(c.Name), referenced[t.Name+"."+c.Name]:
			cfg.Strategy = anonymize.DeterministicHash
		default:
			if r, ok := t.Result(c.Name); ok {
				cfg.Strategy = forClassification(r.Classification)
				if cfg.Strategy == anonymize.RandomizedFormat {
					if hint, ok := temporalHint(r.DetectedType, c.Type); ok {
						cfg.Strategy = anonymize.SyntheticRealistic
						cfg.Options = map[string]string{"hint": hint.String()}
					}
				}
			}
		}
		return cfg
	})
}

func forClassification(c pii.Classification) anonymize.Strategy {
	switch c {
	case pii.DirectIdentifier:
		return anonymize.SyntheticRealistic
	case pii.IndirectIdentifier:
		return anonymize.RandomizedFormat
	case pii.SensitiveData:
		return anonymize.Nullification
	default:
		return anonymize.KeepOriginal
	}
}

// temporalHint reports the synthetic hint for date and time columns, whose
// values randomized_format leaves untouched.
func temporalHint(detected pii.Type, dataType string) (anonymize.Hint, bool) {
	if detected == pii.DateOfBirth {
		return anonymize.HintBirthDate, true
	}
	t := strings.ToLower(dataType)
	if strings.Contains(t, "date") || strings.Contains(t, "time") {
		return anonymize.HintDate, true
	}
	return anonymize.HintNone, false
}

// ApplyRules overrides configs with every rule matching table. Later rules win.
func ApplyRules(table string, configs []anonymize.StrategyConfig, rules []config.Rule) ([]anonymize.StrategyConfig, error) {
	out := append([]anonymize.StrategyConfig(nil), configs...)
	for _, r := range rules {
		if r.Table != "*" && r.Table != table {
			continue
		}
		strategy, err := anonymize.ParseStrategy(r.Strategy)
		if err != nil {
			return nil, fmt.Errorf("rule for %s.%s: %w", r.Table, r.Column, err)
		}
		for i := range out {
			if out[i].ColumnName == r.Column {
				out[i].Strategy = strategy
				out[i].Options = r.Options
			}
		}
	}
	return out, nil
}

func referencedColumns(s pii.SchemaWithPII) map[string]bool {
	ds := schema.DatabaseSchema{
		Tables: lo.Map(s.Tables, func(t pii.TableWithPII, _ int) schema.TableInfo { return t.TableInfo }),
	}
	return ds.ReferencedColumns()
}
