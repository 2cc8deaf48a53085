// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Detection DetectionConfig `mapstructure:"detection"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Emission  EmissionConfig  `mapstructure:"emission"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// DetectionConfig holds opportunity detection thresholds and pacing.
type DetectionConfig struct {
	MinProfitMargin   float64       `mapstructure:"min_profit_margin"`   // percentage
	MinAbsoluteProfit float64       `mapstructure:"min_absolute_profit"` // reporting currency
	MaxInvestment     float64       `mapstructure:"max_investment"`      // reporting currency
	MaxHoldTime       time.Duration `mapstructure:"max_hold_time"`
	FreshnessWindow   time.Duration `mapstructure:"freshness_window"`
	ReportingCurrency string        `mapstructure:"reporting_currency"`
	PassInterval      time.Duration `mapstructure:"pass_interval"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	Workers           int           `mapstructure:"workers"`
	PassesPerMinute   int           `mapstructure:"passes_per_minute"` // matched to scraping throughput
	TUIMode           bool          `mapstructure:"-"`                 // Set at runtime, not from config file
}

// MinProfitMarginDecimal returns the margin threshold as decimal.Decimal.
func (c *DetectionConfig) MinProfitMarginDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitMargin)
}

// MinAbsoluteProfitDecimal returns the profit threshold as decimal.Decimal.
func (c *DetectionConfig) MinAbsoluteProfitDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinAbsoluteProfit)
}

// MaxInvestmentDecimal returns the investment cap as decimal.Decimal.
func (c *DetectionConfig) MaxInvestmentDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxInvestment)
}

// RiskConfig holds risk scoring weights and marketplace ratings.
type RiskConfig struct {
	StalenessWeight    float64            `mapstructure:"staleness_weight"`
	VolatilityWeight   float64            `mapstructure:"volatility_weight"`
	ReliabilityWeight  float64            `mapstructure:"reliability_weight"`
	ExposureWeight     float64            `mapstructure:"exposure_weight"`
	Reliability        map[string]float64 `mapstructure:"reliability"` // marketplace -> [0,1]
	DefaultReliability float64            `mapstructure:"default_reliability"`
	VolatilityDepth    int                `mapstructure:"volatility_depth"` // price points kept per product
}

// PricingConfig holds exchange rates and marketplace fee schedules.
type PricingConfig struct {
	// Rates maps currency codes to their value in the reporting currency.
	// The reporting currency itself never needs an entry.
	Rates map[string]float64   `mapstructure:"rates"`
	Fees  map[string]FeeConfig `mapstructure:"fees"` // marketplace -> schedule
}

// FeeConfig mirrors a marketplace fee schedule. Percent values, not ratios.
type FeeConfig struct {
	PlatformPct    float64 `mapstructure:"platform_pct"`
	TransactionPct float64 `mapstructure:"transaction_pct"`
	TransactionFix float64 `mapstructure:"transaction_fix"`
	PaymentPct     float64 `mapstructure:"payment_pct"`
}

// FeedConfig holds observation feed configuration.
type FeedConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisStream   string `mapstructure:"redis_stream"`
	RedisGroup    string `mapstructure:"redis_group"`
	RedisConsumer string `mapstructure:"redis_consumer"`
	WebSocketURL  string `mapstructure:"websocket_url"` // optional push feed
}

// EmissionConfig holds emission sink configuration.
type EmissionConfig struct {
	Console     bool   `mapstructure:"console"`
	RedisStream string `mapstructure:"redis_stream"` // empty disables the publisher
	SQLitePath  string `mapstructure:"sqlite_path"`  // empty disables history
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
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
	v.SetEnvPrefix("ARB")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
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
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Detection
	v.BindEnv("detection.min_profit_margin", "ARB_MIN_PROFIT_MARGIN", "MIN_PROFIT_MARGIN")
	v.BindEnv("detection.min_absolute_profit", "ARB_MIN_ABSOLUTE_PROFIT", "MIN_ABSOLUTE_PROFIT")
	v.BindEnv("detection.max_investment", "ARB_MAX_INVESTMENT", "MAX_INVESTMENT")
	v.BindEnv("detection.max_hold_time", "ARB_MAX_HOLD_TIME", "MAX_HOLD_TIME")
	v.BindEnv("detection.freshness_window", "ARB_FRESHNESS_WINDOW")
	v.BindEnv("detection.reporting_currency", "ARB_REPORTING_CURRENCY")
	v.BindEnv("detection.workers", "ARB_WORKERS")

	// Feed
	v.BindEnv("feed.redis_addr", "ARB_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("feed.websocket_url", "ARB_FEED_WS_URL", "FEED_WS_URL")

	// Emission
	v.BindEnv("emission.redis_stream", "ARB_EMISSION_STREAM")
	v.BindEnv("emission.sqlite_path", "ARB_SQLITE_PATH")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "gamearb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Detection defaults
	v.SetDefault("detection.min_profit_margin", 10.0)
	v.SetDefault("detection.min_absolute_profit", 5.0)
	v.SetDefault("detection.max_investment", 1000.0)
	v.SetDefault("detection.max_hold_time", "72h")
	v.SetDefault("detection.freshness_window", "1h")
	v.SetDefault("detection.reporting_currency", "EUR")
	v.SetDefault("detection.pass_interval", "30s")
	v.SetDefault("detection.sweep_interval", "1m")
	v.SetDefault("detection.workers", 4)
	v.SetDefault("detection.passes_per_minute", 120)

	// Risk defaults
	v.SetDefault("risk.staleness_weight", 0.2)
	v.SetDefault("risk.volatility_weight", 0.3)
	v.SetDefault("risk.reliability_weight", 0.3)
	v.SetDefault("risk.exposure_weight", 0.2)
	v.SetDefault("risk.default_reliability", 0.8)
	v.SetDefault("risk.volatility_depth", 64)

	// Feed defaults
	v.SetDefault("feed.redis_addr", "localhost:6379")
	v.SetDefault("feed.redis_stream", "observations.prices")
	v.SetDefault("feed.redis_group", "detector")
	v.SetDefault("feed.redis_consumer", "detector-1")

	// Emission defaults
	v.SetDefault("emission.console", true)
	v.SetDefault("emission.redis_stream", "opportunities.events")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "gamearb")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// weightSumTolerance absorbs float decoding noise when checking the weights.
const weightSumTolerance = 1e-9

// Validate validates the configuration. A failure here is fatal at startup:
// the detector refuses to run with thresholds or weights that would produce
// meaningless scores.
func (c *Config) Validate() error {
	if c.Detection.MinProfitMargin < 0 {
		return fmt.Errorf("detection.min_profit_margin must not be negative: %v", c.Detection.MinProfitMargin)
	}
	if c.Detection.MinAbsoluteProfit < 0 {
		return fmt.Errorf("detection.min_absolute_profit must not be negative: %v", c.Detection.MinAbsoluteProfit)
	}
	if c.Detection.MaxInvestment <= 0 {
		return fmt.Errorf("detection.max_investment must be positive: %v", c.Detection.MaxInvestment)
	}
	if c.Detection.MaxHoldTime <= 0 {
		return fmt.Errorf("detection.max_hold_time must be positive: %v", c.Detection.MaxHoldTime)
	}
	if c.Detection.FreshnessWindow <= 0 {
		return fmt.Errorf("detection.freshness_window must be positive: %v", c.Detection.FreshnessWindow)
	}
	if c.Detection.ReportingCurrency == "" {
		return fmt.Errorf("detection.reporting_currency is required")
	}
	if c.Detection.Workers <= 0 {
		return fmt.Errorf("detection.workers must be positive: %d", c.Detection.Workers)
	}
	if c.Detection.PassInterval <= 0 {
		return fmt.Errorf("detection.pass_interval must be positive: %v", c.Detection.PassInterval)
	}
	if c.Detection.SweepInterval <= 0 {
		return fmt.Errorf("detection.sweep_interval must be positive: %v", c.Detection.SweepInterval)
	}
	if c.Detection.PassesPerMinute <= 0 {
		return fmt.Errorf("detection.passes_per_minute must be positive: %d", c.Detection.PassesPerMinute)
	}

	sum := c.Risk.StalenessWeight + c.Risk.VolatilityWeight + c.Risk.ReliabilityWeight + c.Risk.ExposureWeight
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("risk weights must sum to 1, got %v", sum)
	}
	for _, w := range []float64{c.Risk.StalenessWeight, c.Risk.VolatilityWeight, c.Risk.ReliabilityWeight, c.Risk.ExposureWeight} {
		if w < 0 {
			return fmt.Errorf("risk weights must not be negative")
		}
	}
	for name, r := range c.Risk.Reliability {
		if r < 0 || r > 1 {
			return fmt.Errorf("risk.reliability[%s] must be in [0,1]: %v", name, r)
		}
	}
	if c.Risk.DefaultReliability < 0 || c.Risk.DefaultReliability > 1 {
		return fmt.Errorf("risk.default_reliability must be in [0,1]: %v", c.Risk.DefaultReliability)
	}
	if c.Risk.VolatilityDepth <= 1 {
		return fmt.Errorf("risk.volatility_depth must be greater than 1: %d", c.Risk.VolatilityDepth)
	}

	for ccy, rate := range c.Pricing.Rates {
		if rate <= 0 {
			return fmt.Errorf("pricing.rates[%s] must be positive: %v", ccy, rate)
		}
	}
	for name, fee := range c.Pricing.Fees {
		for _, pct := range []float64{fee.PlatformPct, fee.TransactionPct, fee.TransactionFix, fee.PaymentPct} {
			if pct < 0 {
				return fmt.Errorf("pricing.fees[%s] must not be negative", name)
			}
		}
	}

	return nil
}
