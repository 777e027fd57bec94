// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure
type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Trading  TradingConfig  `yaml:"trading"`
	System   SystemConfig   `yaml:"system"`
}

// ExchangeConfig contains connection credentials and environment selection
type ExchangeConfig struct {
	Testnet      bool   `yaml:"testnet"`
	ClientKey    Secret `yaml:"client_key"`
	ClientSecret Secret `yaml:"client_secret"` // hex-encoded shared secret
	URL          string `yaml:"url"`           // optional endpoint override
	Origin       string `yaml:"origin"`        // optional origin override
}

// TradingConfig contains quoting parameters for the single instrument
type TradingConfig struct {
	InstrumentID                    int64   `yaml:"instrument_id"`
	MaxPosition                     float64 `yaml:"max_position"`
	QuoteSize                       float64 `yaml:"quote_size"`
	Interest                        float64 `yaml:"interest"`
	Shift                           float64 `yaml:"shift"`
	OrderType                       string  `yaml:"order_type"`
	TimeInForce                     string  `yaml:"time_in_force"`
	InitialPosition                 float64 `yaml:"initial_position"`
	ReadInitialPositionFromExchange bool    `yaml:"read_initial_position_from_exchange"`
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel              string `yaml:"log_level"`
	LogDir                string `yaml:"log_dir"`
	MetricsPort           int    `yaml:"metrics_port"` // 0 disables the /metrics endpoint
	StatusPrintIntervalMS int    `yaml:"status_print_interval_ms"`
}

// Decimal accessors. Config floats are converted exactly once here so all
// trading arithmetic downstream stays decimal.

func (t *TradingConfig) InterestDec() decimal.Decimal {
	return decimal.NewFromFloat(t.Interest)
}

func (t *TradingConfig) ShiftDec() decimal.Decimal {
	return decimal.NewFromFloat(t.Shift)
}

func (t *TradingConfig) QuoteSizeDec() decimal.Decimal {
	return decimal.NewFromFloat(t.QuoteSize)
}

func (t *TradingConfig) MaxPositionDec() decimal.Decimal {
	return decimal.NewFromFloat(t.MaxPosition)
}

func (t *TradingConfig) InitialPositionDec() decimal.Decimal {
	return decimal.NewFromFloat(t.InitialPosition)
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.System.LogLevel == "" {
		c.System.LogLevel = "INFO"
	}
	if c.System.StatusPrintIntervalMS == 0 {
		c.System.StatusPrintIntervalMS = 500
	}
	if c.Trading.OrderType == "" {
		c.Trading.OrderType = "LIMIT"
	}
	if c.Trading.TimeInForce == "" {
		c.Trading.TimeInForce = "GTC"
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errors []string

	if err := c.validateExchange(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateTrading(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateSystem(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}

func (c *Config) validateExchange() error {
	if c.Exchange.ClientKey == "" {
		return ValidationError{
			Field:   "exchange.client_key",
			Message: "client key is required",
		}
	}
	if c.Exchange.ClientSecret == "" {
		return ValidationError{
			Field:   "exchange.client_secret",
			Message: "client secret is required",
		}
	}
	if c.Exchange.URL != "" && !strings.HasPrefix(c.Exchange.URL, "wss://") && !strings.HasPrefix(c.Exchange.URL, "ws://") {
		return ValidationError{
			Field:   "exchange.url",
			Value:   c.Exchange.URL,
			Message: "must be a ws:// or wss:// URL",
		}
	}
	return nil
}

func (c *Config) validateTrading() error {
	if c.Trading.InstrumentID <= 0 {
		return ValidationError{
			Field:   "trading.instrument_id",
			Value:   c.Trading.InstrumentID,
			Message: "instrument id is required",
		}
	}
	if c.Trading.QuoteSize <= 0 {
		return ValidationError{
			Field:   "trading.quote_size",
			Value:   c.Trading.QuoteSize,
			Message: "quote size must be positive",
		}
	}
	if c.Trading.MaxPosition <= 0 {
		return ValidationError{
			Field:   "trading.max_position",
			Value:   c.Trading.MaxPosition,
			Message: "max position must be positive",
		}
	}
	if c.Trading.Interest <= 0 {
		return ValidationError{
			Field:   "trading.interest",
			Value:   c.Trading.Interest,
			Message: "interest (half-spread) must be positive",
		}
	}
	if c.Trading.Shift < 0 {
		return ValidationError{
			Field:   "trading.shift",
			Value:   c.Trading.Shift,
			Message: "shift must not be negative",
		}
	}

	validTypes := []string{"LIMIT", "POST_ONLY"}
	if !contains(validTypes, c.Trading.OrderType) {
		return ValidationError{
			Field:   "trading.order_type",
			Value:   c.Trading.OrderType,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validTypes, ", ")),
		}
	}

	validTIF := []string{"GTC", "IOC", "FOK"}
	if !contains(validTIF, c.Trading.TimeInForce) {
		return ValidationError{
			Field:   "trading.time_in_force",
			Value:   c.Trading.TimeInForce,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validTIF, ", ")),
		}
	}

	return nil
}

func (c *Config) validateSystem() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	if !contains(validLevels, strings.ToUpper(c.System.LogLevel)) {
		return ValidationError{
			Field:   "system.log_level",
			Value:   c.System.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	if c.System.MetricsPort < 0 || c.System.MetricsPort > 65535 {
		return ValidationError{
			Field:   "system.metrics_port",
			Value:   c.System.MetricsPort,
			Message: "must be a valid port (0 disables metrics)",
		}
	}
	if c.System.StatusPrintIntervalMS < 100 {
		return ValidationError{
			Field:   "system.status_print_interval_ms",
			Value:   c.System.StatusPrintIntervalMS,
			Message: "must be at least 100",
		}
	}
	return nil
}

// String returns a string representation of the configuration. Credentials are
// Secret values and redact themselves.
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}

// Helper functions

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// DefaultConfig returns a default configuration for testing
func DefaultConfig() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			Testnet:      true,
			ClientKey:    "test_client_key",
			ClientSecret: "746573745f736563726574",
		},
		Trading: TradingConfig{
			InstrumentID:                    600,
			MaxPosition:                     50,
			QuoteSize:                       10,
			Interest:                        0.05,
			Shift:                           0.01,
			OrderType:                       "LIMIT",
			TimeInForce:                     "GTC",
			InitialPosition:                 0,
			ReadInitialPositionFromExchange: false,
		},
		System: SystemConfig{
			LogLevel:              "INFO",
			LogDir:                "",
			MetricsPort:           0,
			StatusPrintIntervalMS: 500,
		},
	}
}
