// Package config provides configuration management for frame planning
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paveg/tdsframe/internal/pureplan"
	"github.com/paveg/tdsframe/internal/sqlplan"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config represents the planner configuration
type Config struct {
	// Output Configuration
	Pretty              bool   `json:"pretty" yaml:"pretty"`                               // Break generated text over lines
	Dialect             string `json:"dialect" yaml:"dialect"`                             // SQL dialect of the engine
	QuoteAllIdentifiers bool   `json:"quote_all_identifiers" yaml:"quote_all_identifiers"` // Quote every SQL identifier

	// Planner Configuration
	MemoSize int `json:"memo_size" yaml:"memo_size"` // Rendered sub-frames remembered per Pure generation

	// Debugging Configuration
	LogLevel string `json:"log_level" yaml:"log_level"` // debug, info, warn or error
}

// Default configuration values
const (
	DefaultDialect  = "legend"
	DefaultMemoSize = pureplan.DefaultMemoSize
	DefaultLogLevel = "info"
)

// EnvPrefix prefixes the environment variables read by LoadFromEnv.
const EnvPrefix = "TDSFRAME_"

var dialects = []string{DefaultDialect}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		Pretty:   true,
		Dialect:  DefaultDialect,
		MemoSize: DefaultMemoSize,
		LogLevel: DefaultLogLevel,
	}
}

// Validate reports every invalid setting of the configuration
func (c *Config) Validate() error {
	var err error
	if !isDialect(c.Dialect) {
		err = multierr.Append(err, fmt.Errorf("Dialect must be one of %s, got %q", strings.Join(dialects, ", "), c.Dialect))
	}
	if c.MemoSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("MemoSize must be positive, got %d", c.MemoSize))
	}
	if _, levelErr := zapcore.ParseLevel(c.LogLevel); levelErr != nil {
		err = multierr.Append(err, fmt.Errorf("LogLevel must be debug, info, warn or error, got %q", c.LogLevel))
	}
	return err
}

func isDialect(name string) bool {
	for _, d := range dialects {
		if d == name {
			return true
		}
	}
	return false
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.Dialect == "" {
		c.Dialect = defaults.Dialect
	}
	if c.MemoSize == 0 {
		c.MemoSize = defaults.MemoSize
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}

	// Booleans keep their zero value: an unset pretty flag cannot be told apart
	// from an explicit false. Decoders start from NewConfig to keep the default.
	return c
}

// Level returns the configured log level, falling back to info.
func (c Config) Level() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// SQLOptions returns the SQL planner options of the configuration.
func (c Config) SQLOptions(logger *zap.Logger) sqlplan.Options {
	return sqlplan.Options{Pretty: c.Pretty, QuoteAllIdentifiers: c.QuoteAllIdentifiers, Logger: logger}
}

// PureOptions returns the Pure planner options of the configuration.
func (c Config) PureOptions(logger *zap.Logger) pureplan.Options {
	return pureplan.Options{Pretty: c.Pretty, MemoSize: c.MemoSize, Logger: logger}
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	config := NewConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromYAML loads configuration from YAML data
func LoadFromYAML(data []byte) (Config, error) {
	config := NewConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing YAML configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a JSON or YAML file
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		config, err = LoadFromJSON(data)
	case ".yaml", ".yml":
		config, err = LoadFromYAML(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("loading config file %s: %w", filename, err)
	}
	return config, nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() Config {
	return ApplyEnv(NewConfig())
}

// ApplyEnv overrides the settings of config named by TDSFRAME_ environment
// variables. Values that do not parse are ignored.
func ApplyEnv(config Config) Config {
	if val := os.Getenv(EnvPrefix + "PRETTY"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.Pretty = parsed
		}
	}

	if val := os.Getenv(EnvPrefix + "DIALECT"); val != "" {
		config.Dialect = strings.ToLower(val)
	}

	if val := os.Getenv(EnvPrefix + "QUOTE_ALL_IDENTIFIERS"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.QuoteAllIdentifiers = parsed
		}
	}

	if val := os.Getenv(EnvPrefix + "MEMO_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.MemoSize = parsed
		}
	}

	if val := os.Getenv(EnvPrefix + "LOG_LEVEL"); val != "" {
		config.LogLevel = strings.ToLower(val)
	}

	return config
}
