// Package anonymize replaces column values under per-column strategies.
//
// The Engine is a pure value-in/value-out transformer: it never looks at the
// schema or at detection results. Which strategy a column gets is always the
// caller's decision, expressed as a StrategyConfig. A nil value is SQL NULL.
package anonymize

import (
	"errors"
	"fmt"
)

// ErrUnknownStrategy is returned for strategy identifiers outside the closed set.
var ErrUnknownStrategy = errors.New("unknown strategy")

type Strategy string

const (
	SyntheticRealistic Strategy = "synthetic_realistic"
	DeterministicHash  Strategy = "deterministic_hash"
	RandomizedFormat   Strategy = "randomized_format"
	Nullification      Strategy = "nullification"
	KeepOriginal       Strategy = "keep_original"
)

// Strategies lists every supported strategy.
var Strategies = []Strategy{SyntheticRealistic, DeterministicHash, RandomizedFormat, Nullification, KeepOriginal}

func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// StrategyConfig is the caller's policy for one column.
//
// Recognized options:
//
//	hint  synthetic_realistic only; forces a semantic hint such as "email"
//	      or "city" instead of deriving it from the column name.
type StrategyConfig struct {
	ColumnName string            `json:"columnName" mapstructure:"column"`
	DataType   string            `json:"dataType" mapstructure:"data_type"`
	Strategy   Strategy          `json:"strategy" mapstructure:"strategy"`
	Options    map[string]string `json:"options,omitempty" mapstructure:"options"`
}
