package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paveg/tdsframe/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

func TestConfig_DefaultValues(t *testing.T) {
	config := config.NewConfig()

	assert.True(t, config.Pretty)
	assert.Equal(t, "legend", config.Dialect)
	assert.False(t, config.QuoteAllIdentifiers)
	assert.Equal(t, 128, config.MemoSize)
	assert.Equal(t, "info", config.LogLevel)
	assert.NoError(t, config.Validate())
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name           string
		config         config.Config
		expectedErrors []string
	}{
		{
			name:   "valid config",
			config: config.Config{Dialect: "legend", MemoSize: 16, LogLevel: "debug"},
		},
		{
			name:           "unknown dialect",
			config:         config.Config{Dialect: "oracle", MemoSize: 16, LogLevel: "info"},
			expectedErrors: []string{`Dialect must be one of legend, got "oracle"`},
		},
		{
			name:           "non-positive memo size",
			config:         config.Config{Dialect: "legend", MemoSize: 0, LogLevel: "info"},
			expectedErrors: []string{"MemoSize must be positive, got 0"},
		},
		{
			name:   "every violation reported",
			config: config.Config{Dialect: "", MemoSize: -1, LogLevel: "loud"},
			expectedErrors: []string{
				`Dialect must be one of legend, got ""`,
				"MemoSize must be positive, got -1",
				`LogLevel must be debug, info, warn or error, got "loud"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if len(tt.expectedErrors) == 0 {
				assert.NoError(t, err)
				return
			}
			errs := multierr.Errors(err)
			require.Len(t, errs, len(tt.expectedErrors))
			for i, expected := range tt.expectedErrors {
				assert.EqualError(t, errs[i], expected)
			}
		})
	}
}

func TestConfig_LoadFromJSON(t *testing.T) {
	config, err := config.LoadFromJSON([]byte(`{"pretty": false, "memo_size": 32, "quote_all_identifiers": true}`))
	require.NoError(t, err)

	assert.False(t, config.Pretty)
	assert.True(t, config.QuoteAllIdentifiers)
	assert.Equal(t, 32, config.MemoSize)
	assert.Equal(t, "legend", config.Dialect)
	assert.Equal(t, "info", config.LogLevel)
}

func TestConfig_InvalidJSON(t *testing.T) {
	_, err := config.LoadFromJSON([]byte(`{"memo_size": "many"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing JSON configuration")
}

func TestConfig_LoadFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"log_level": "debug"}`), 0o600))

		cfg, err := config.LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.True(t, cfg.Pretty)
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "config.yaml")
		yamlData := `
pretty: false
dialect: legend
memo_size: 64
`
		require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o600))

		cfg, err := config.LoadFromFile(path)
		require.NoError(t, err)
		assert.False(t, cfg.Pretty)
		assert.Equal(t, 64, cfg.MemoSize)
	})

	t.Run("unsupported format", func(t *testing.T) {
		path := filepath.Join(dir, "config.toml")
		require.NoError(t, os.WriteFile(path, []byte(`pretty = true`), 0o600))

		_, err := config.LoadFromFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported config file format: .toml")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadFromFile(filepath.Join(dir, "missing.json"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("TDSFRAME_PRETTY", "false")
	t.Setenv("TDSFRAME_MEMO_SIZE", "12")
	t.Setenv("TDSFRAME_LOG_LEVEL", "DEBUG")
	t.Setenv("TDSFRAME_QUOTE_ALL_IDENTIFIERS", "not-a-bool")

	config := config.LoadFromEnv()

	assert.False(t, config.Pretty)
	assert.Equal(t, 12, config.MemoSize)
	assert.Equal(t, "debug", config.LogLevel)
	assert.False(t, config.QuoteAllIdentifiers)
	assert.Equal(t, zapcore.DebugLevel, config.Level())
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := config.Config{MemoSize: 8}.WithDefaults()

	assert.Equal(t, 8, cfg.MemoSize)
	assert.Equal(t, "legend", cfg.Dialect)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Pretty)
}

func TestConfig_PlannerOptions(t *testing.T) {
	cfg := config.NewConfig()
	cfg.QuoteAllIdentifiers = true
	cfg.MemoSize = 4

	sqlOpts := cfg.SQLOptions(nil)
	assert.True(t, sqlOpts.Pretty)
	assert.True(t, sqlOpts.QuoteAllIdentifiers)

	pureOpts := cfg.PureOptions(nil)
	assert.True(t, pureOpts.Pretty)
	assert.Equal(t, 4, pureOpts.MemoSize)
}
