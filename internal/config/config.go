// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Venues    []VenueConfig   `mapstructure:"venues"`
	Lending   LendingConfig   `mapstructure:"lending"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Feed      FeedConfig      `mapstructure:"feed"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	ChainID     uint64 `mapstructure:"chain_id"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// VenueConfig describes one reserve pool to seed at startup.
type VenueConfig struct {
	Name           string `mapstructure:"name"`
	BaseSymbol     string `mapstructure:"base_symbol"`
	QuoteSymbol    string `mapstructure:"quote_symbol"`
	BaseReserve    string `mapstructure:"base_reserve"`  // decimal, human units
	QuoteReserve   string `mapstructure:"quote_reserve"` // decimal, human units
	FeeNumerator   int64  `mapstructure:"fee_numerator"`
	FeeDenominator int64  `mapstructure:"fee_denominator"`
}

// BaseReserveDecimal returns the base reserve as decimal.Decimal.
func (v *VenueConfig) BaseReserveDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(v.BaseReserve)
}

// QuoteReserveDecimal returns the quote reserve as decimal.Decimal.
func (v *VenueConfig) QuoteReserveDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(v.QuoteReserve)
}

// LendingConfig holds flash loan settings.
type LendingConfig struct {
	LoanFeeBps int64 `mapstructure:"loan_fee_bps"`
}

// ArbitrageConfig holds arbitrage executor and engine settings.
type ArbitrageConfig struct {
	BorrowSymbol       string        `mapstructure:"borrow_symbol"`
	TradeSize          string        `mapstructure:"trade_size"` // decimal, human units
	ProfitThresholdBps int64         `mapstructure:"profit_threshold_bps"`
	AttemptsPerMinute  int           `mapstructure:"attempts_per_minute"`
	Route              string        `mapstructure:"route"` // "cross" or "same"
	BreakerFailures    uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown    time.Duration `mapstructure:"breaker_cooldown"`
}

// TradeSizeDecimal returns the trade size as decimal.Decimal.
func (c *ArbitrageConfig) TradeSizeDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(c.TradeSize)
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// FeedConfig holds the websocket result feed configuration.
type FeedConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("FLASH")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "FLASH_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "FLASH_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "FLASH_LOG_LEVEL", "LOG_LEVEL")

	// Lending
	v.BindEnv("lending.loan_fee_bps", "FLASH_LOAN_FEE_BPS")

	// Arbitrage
	v.BindEnv("arbitrage.borrow_symbol", "FLASH_BORROW_SYMBOL")
	v.BindEnv("arbitrage.trade_size", "FLASH_TRADE_SIZE")
	v.BindEnv("arbitrage.profit_threshold_bps", "FLASH_PROFIT_THRESHOLD_BPS")
	v.BindEnv("arbitrage.route", "FLASH_ROUTE")

	// Telemetry
	v.BindEnv("telemetry.enabled", "FLASH_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "FLASH_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "FLASH_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "flashpool")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.chain_id", 1)

	// Two venues trading the same pair at different prices, so the
	// cross-venue route has an edge to close.
	v.SetDefault("venues", []map[string]any{
		{
			"name":            "alpha",
			"base_symbol":     "DAI",
			"quote_symbol":    "USDC",
			"base_reserve":    "1000000",
			"quote_reserve":   "1000000",
			"fee_numerator":   3,
			"fee_denominator": 1000,
		},
		{
			"name":            "beta",
			"base_symbol":     "DAI",
			"quote_symbol":    "USDC",
			"base_reserve":    "1000000",
			"quote_reserve":   "1020000",
			"fee_numerator":   3,
			"fee_denominator": 1000,
		},
	})

	// Lending defaults: 9 bps loan fee
	v.SetDefault("lending.loan_fee_bps", 9)

	// Arbitrage defaults
	v.SetDefault("arbitrage.borrow_symbol", "DAI")
	v.SetDefault("arbitrage.trade_size", "10000")
	v.SetDefault("arbitrage.profit_threshold_bps", 100)
	v.SetDefault("arbitrage.attempts_per_minute", 60)
	v.SetDefault("arbitrage.route", "cross")
	v.SetDefault("arbitrage.breaker_failures", 5)
	v.SetDefault("arbitrage.breaker_cooldown", "30s")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "flashpool")
	v.SetDefault("telemetry.prometheus_port", 9090)

	// Feed defaults
	v.SetDefault("feed.enabled", false)
	v.SetDefault("feed.port", 8082)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Venues) == 0 || len(c.Venues) > 2 {
		return fmt.Errorf("venues: need one or two, got %d", len(c.Venues))
	}

	for i, venue := range c.Venues {
		if venue.BaseSymbol == "" || venue.QuoteSymbol == "" {
			return fmt.Errorf("venues[%d]: base and quote symbols are required", i)
		}
		if venue.BaseSymbol == venue.QuoteSymbol {
			return fmt.Errorf("venues[%d]: base and quote must differ", i)
		}
		if venue.FeeDenominator <= 0 || venue.FeeNumerator < 0 || venue.FeeNumerator >= venue.FeeDenominator {
			return fmt.Errorf("venues[%d]: invalid fee %d/%d", i, venue.FeeNumerator, venue.FeeDenominator)
		}
		if _, err := venue.BaseReserveDecimal(); err != nil {
			return fmt.Errorf("venues[%d]: invalid base_reserve: %w", i, err)
		}
		if _, err := venue.QuoteReserveDecimal(); err != nil {
			return fmt.Errorf("venues[%d]: invalid quote_reserve: %w", i, err)
		}
	}

	if c.Lending.LoanFeeBps < 0 || c.Lending.LoanFeeBps >= 10000 {
		return fmt.Errorf("lending.loan_fee_bps out of range: %d", c.Lending.LoanFeeBps)
	}

	if c.Arbitrage.ProfitThresholdBps < 0 {
		return fmt.Errorf("arbitrage.profit_threshold_bps must be non-negative")
	}
	if c.Arbitrage.Route != "cross" && c.Arbitrage.Route != "same" {
		return fmt.Errorf("arbitrage.route must be \"cross\" or \"same\", got %q", c.Arbitrage.Route)
	}
	if c.Arbitrage.Route == "cross" && len(c.Venues) < 2 {
		return fmt.Errorf("arbitrage.route \"cross\" requires two venues")
	}
	if _, err := c.Arbitrage.TradeSizeDecimal(); err != nil {
		return fmt.Errorf("arbitrage.trade_size: %w", err)
	}

	return nil
}
