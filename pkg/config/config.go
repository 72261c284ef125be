package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Schema    SchemaConfig    `mapstructure:"schema"`
	Anonymize AnonymizeConfig `mapstructure:"anonymize"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

type DatabaseConfig struct {
	URL    string `mapstructure:"url"`
	Schema string `mapstructure:"schema"`
}

type SchemaConfig struct {
	ExcludeTables []string `mapstructure:"exclude_tables"`
	IncludeTables []string `mapstructure:"include_tables"`
	Workers       int      `mapstructure:"workers"`
}

type AnonymizeConfig struct {
	Workers   int    `mapstructure:"workers"`
	BatchSize int    `mapstructure:"batch_size"`
	Limit     int    `mapstructure:"limit"`
	Sink      string `mapstructure:"sink"`
	Output    string `mapstructure:"output"`
	Rules     []Rule `mapstructure:"rules"`
}

// Rule overrides the suggested strategy for one column. Table "*" matches
// every table.
type Rule struct {
	Table    string            `mapstructure:"table"`
	Column   string            `mapstructure:"column"`
	Strategy string            `mapstructure:"strategy"`
	Options  map[string]string `mapstructure:"options"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var validSinks = map[string]bool{"sqlite": true, "jsonl": true}

// Defaults registers default values on v.
func Defaults(v *viper.Viper) {
	v.SetDefault("database.schema", "public")
	v.SetDefault("schema.workers", 4)
	v.SetDefault("anonymize.workers", 4)
	v.SetDefault("anonymize.batch_size", 500)
	v.SetDefault("anonymize.limit", 0)
	v.SetDefault("anonymize.sink", "sqlite")
	v.SetDefault("anonymize.output", "anonymized.db")
	v.SetDefault("server.addr", ":3001")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.query_timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func (c *Config) Validate() error {
	if c.Schema.Workers <= 0 {
		return fmt.Errorf("schema.workers must be positive, got %d", c.Schema.Workers)
	}
	if c.Anonymize.Workers <= 0 {
		return fmt.Errorf("anonymize.workers must be positive, got %d", c.Anonymize.Workers)
	}
	if c.Anonymize.BatchSize <= 0 {
		return fmt.Errorf("anonymize.batch_size must be positive, got %d", c.Anonymize.BatchSize)
	}
	if !validSinks[c.Anonymize.Sink] {
		return fmt.Errorf("invalid sink '%s'. Valid sinks: sqlite, jsonl", c.Anonymize.Sink)
	}
	for i, r := range c.Anonymize.Rules {
		if r.Table == "" || r.Column == "" || r.Strategy == "" {
			return fmt.Errorf("anonymize.rules[%d]: table, column and strategy are required", i)
		}
	}
	return nil
}
