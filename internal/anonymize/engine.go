package anonymize

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"
)

const (
	alphanumeric     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	emailLocalLength = 8
)

// Engine applies strategies to single values. An Engine owns its random
// source and is not safe for concurrent use.
type Engine struct {
	rng *rand.Rand
	gen Generator
}

type Option func(*Engine)

// WithSeed makes the engine's random choices reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithGenerator replaces the realistic value generator.
func WithGenerator(g Generator) Option {
	return func(e *Engine) {
		e.gen = g
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if e.gen == nil {
		e.gen = NewFakerGenerator(e.rng.Uint64())
	}
	return e
}

// Apply returns the replacement for value under cfg.Strategy.
func (e *Engine) Apply(value any, cfg StrategyConfig) (any, error) {
	switch cfg.Strategy {
	case SyntheticRealistic:
		return e.syntheticRealistic(value, cfg), nil
	case DeterministicHash:
		if value == nil {
			return nil, nil
		}
		return Hash(value), nil
	case RandomizedFormat:
		return e.randomizedFormat(value, cfg), nil
	case Nullification:
		return nil, nil
	case KeepOriginal:
		return value, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
	}
}

func (e *Engine) syntheticRealistic(value any, cfg StrategyConfig) any {
	if value == nil {
		return nil
	}

	hint := DetectHint(cfg.ColumnName, cfg.DataType)
	if forced, ok := ParseHint(cfg.Options["hint"]); ok {
		hint = forced
	}

	if v, ok := e.gen.Generate(hint); ok {
		return v
	}
	return value
}

func (e *Engine) randomizedFormat(value any, cfg StrategyConfig) any {
	if value == nil {
		return nil
	}

	s := stringify(value)
	column := strings.ToLower(cfg.ColumnName)

	if strings.Contains(column, "email") && strings.Contains(s, "@") {
		_, domain, _ := strings.Cut(s, "@")
		return e.alphanumeric(emailLocalLength) + "@" + domain
	}

	if containsAny(column, "phone", "tel", "dni", "ssn", "tax") {
		return e.replaceDigits(s)
	}

	switch v := value.(type) {
	case string, []byte:
		if isNumericType(cfg.DataType) && isDecimal(s) {
			return e.sameLayoutDigits(s)
		}
		return e.alphanumeric(utf8.RuneCountInString(s))
	case int, int8, int16, int32, int64:
		return e.sameDigitsInt(cast.ToInt64(v))
	case uint, uint8, uint16, uint32, uint64:
		return e.sameDigitsUint(cast.ToUint64(v))
	case float32, float64:
		return e.sameLayoutFloat(cast.ToFloat64(v))
	default:
		return value
	}
}

func (e *Engine) alphanumeric(n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(alphanumeric[e.rng.IntN(len(alphanumeric))])
	}
	return b.String()
}

// replaceDigits swaps every ASCII digit for a random one and keeps everything
// else in place.
func (e *Engine) replaceDigits(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= '0' && c <= '9' {
			b[i] = byte('0' + e.rng.IntN(10))
		}
	}
	return string(b)
}

func digitCount(u uint64) int {
	return len(strconv.FormatUint(u, 10))
}

// uintWithDigits returns a random number with exactly n decimal digits, n in [1, 20].
func (e *Engine) uintWithDigits(n int, limit uint64) uint64 {
	if n == 1 {
		return e.rng.Uint64N(10)
	}
	lo := uint64(1)
	for range n - 1 {
		lo *= 10
	}
	hi := limit
	if n < 20 && lo*10-1 < limit {
		hi = lo*10 - 1
	}
	return lo + e.rng.Uint64N(hi-lo+1)
}

func (e *Engine) sameDigitsInt(v int64) int64 {
	neg := v < 0
	var abs uint64
	if neg {
		abs = uint64(-(v + 1)) + 1
	} else {
		abs = uint64(v)
	}

	limit := uint64(math.MaxInt64)
	if neg {
		limit++
	}
	r := e.uintWithDigits(digitCount(abs), limit)
	if neg {
		return -int64(r-1) - 1
	}
	return int64(r)
}

func (e *Engine) sameDigitsUint(v uint64) uint64 {
	return e.uintWithDigits(digitCount(v), math.MaxUint64)
}

// sameLayoutFloat keeps sign, decimal point position and digit count.
func (e *Engine) sameLayoutFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	out, err := strconv.ParseFloat(e.sameLayoutDigits(strconv.FormatFloat(f, 'f', -1, 64)), 64)
	if err != nil {
		return f
	}
	return out
}

// sameLayoutDigits randomizes the digits of a plain decimal string. The
// leading digit of a multi-digit integer part stays non-zero.
func (e *Engine) sameLayoutDigits(s string) string {
	b := []byte(e.replaceDigits(s))

	start := 0
	if b[0] == '-' || b[0] == '+' {
		start = 1
	}
	intLen := strings.IndexByte(string(b[start:]), '.')
	if intLen < 0 {
		intLen = len(b) - start
	}
	if intLen > 1 && b[start] == '0' {
		b[start] = byte('1' + e.rng.IntN(9))
	}
	return string(b)
}

// isNumericType matches declared types whose values are numbers even when the
// driver hands them over as text.
func isNumericType(dataType string) bool {
	return containsAny(strings.ToLower(dataType), "int", "numeric", "decimal", "float", "double", "real")
}

// isDecimal accepts an optional sign, digits and at most one decimal point.
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
