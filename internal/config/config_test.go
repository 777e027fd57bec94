package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
exchange:
  testnet: true
  client_key: my_key
  client_secret: 6162636465
trading:
  instrument_id: 600
  max_position: 50
  quote_size: 10
  interest: 0.05
  shift: 0.01
  order_type: LIMIT
  time_in_force: GTC
system:
  log_level: DEBUG
  status_print_interval_ms: 500
`

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfigFile(t, validYAML)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Exchange.Testnet)
	assert.Equal(t, Secret("my_key"), cfg.Exchange.ClientKey)
	assert.Equal(t, int64(600), cfg.Trading.InstrumentID)
	assert.Equal(t, "DEBUG", cfg.System.LogLevel)
	assert.Equal(t, "0.05", cfg.Trading.InterestDec().String())
	assert.Equal(t, "10", cfg.Trading.QuoteSizeDec().String())
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("QUOTER_TEST_KEY", "key_from_env")
	path := writeConfigFile(t, `
exchange:
  client_key: ${QUOTER_TEST_KEY}
  client_secret: 6162636465
trading:
  instrument_id: 1
  max_position: 1
  quote_size: 1
  interest: 0.01
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Secret("key_from_env"), cfg.Exchange.ClientKey)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfigFile(t, `
exchange:
  client_key: k
  client_secret: 61
trading:
  instrument_id: 1
  max_position: 1
  quote_size: 1
  interest: 0.01
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.System.LogLevel)
	assert.Equal(t, 500, cfg.System.StatusPrintIntervalMS)
	assert.Equal(t, "LIMIT", cfg.Trading.OrderType)
	assert.Equal(t, "GTC", cfg.Trading.TimeInForce)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "missing client key",
			mutate: func(c *Config) { c.Exchange.ClientKey = "" },
			field:  "exchange.client_key",
		},
		{
			name:   "missing client secret",
			mutate: func(c *Config) { c.Exchange.ClientSecret = "" },
			field:  "exchange.client_secret",
		},
		{
			name:   "bad url scheme",
			mutate: func(c *Config) { c.Exchange.URL = "http://example.com" },
			field:  "exchange.url",
		},
		{
			name:   "zero instrument id",
			mutate: func(c *Config) { c.Trading.InstrumentID = 0 },
			field:  "trading.instrument_id",
		},
		{
			name:   "negative quote size",
			mutate: func(c *Config) { c.Trading.QuoteSize = -1 },
			field:  "trading.quote_size",
		},
		{
			name:   "zero interest",
			mutate: func(c *Config) { c.Trading.Interest = 0 },
			field:  "trading.interest",
		},
		{
			name:   "negative shift",
			mutate: func(c *Config) { c.Trading.Shift = -0.1 },
			field:  "trading.shift",
		},
		{
			name:   "invalid order type",
			mutate: func(c *Config) { c.Trading.OrderType = "STOP" },
			field:  "trading.order_type",
		},
		{
			name:   "invalid time in force",
			mutate: func(c *Config) { c.Trading.TimeInForce = "DAY" },
			field:  "trading.time_in_force",
		},
		{
			name:   "invalid log level",
			mutate: func(c *Config) { c.System.LogLevel = "TRACE" },
			field:  "system.log_level",
		},
		{
			name:   "status interval too small",
			mutate: func(c *Config) { c.System.StatusPrintIntervalMS = 10 },
			field:  "system.status_print_interval_ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestConfig_StringRedactsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	out := cfg.String()
	assert.NotContains(t, out, "test_client_key")
	assert.NotContains(t, out, string(cfg.Exchange.ClientSecret))
	assert.Contains(t, out, "[REDACTED]")
}
