package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{Name: "gamearb", Environment: "test", LogLevel: "info"},
		Detection: DetectionConfig{
			MinProfitMargin:   10.0,
			MinAbsoluteProfit: 5.0,
			MaxInvestment:     1000.0,
			MaxHoldTime:       72 * time.Hour,
			FreshnessWindow:   time.Hour,
			ReportingCurrency: "EUR",
			PassInterval:      30 * time.Second,
			SweepInterval:     time.Minute,
			Workers:           4,
			PassesPerMinute:   120,
		},
		Risk: RiskConfig{
			StalenessWeight:    0.2,
			VolatilityWeight:   0.3,
			ReliabilityWeight:  0.3,
			ExposureWeight:     0.2,
			DefaultReliability: 0.8,
			VolatilityDepth:    64,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero_margin_allowed", func(c *Config) { c.Detection.MinProfitMargin = 0 }, false},
		{"negative_margin", func(c *Config) { c.Detection.MinProfitMargin = -1 }, true},
		{"negative_absolute_profit", func(c *Config) { c.Detection.MinAbsoluteProfit = -0.01 }, true},
		{"zero_investment", func(c *Config) { c.Detection.MaxInvestment = 0 }, true},
		{"zero_hold_time", func(c *Config) { c.Detection.MaxHoldTime = 0 }, true},
		{"zero_freshness", func(c *Config) { c.Detection.FreshnessWindow = 0 }, true},
		{"missing_reporting_currency", func(c *Config) { c.Detection.ReportingCurrency = "" }, true},
		{"zero_workers", func(c *Config) { c.Detection.Workers = 0 }, true},
		{"zero_pass_interval", func(c *Config) { c.Detection.PassInterval = 0 }, true},
		{"zero_sweep_interval", func(c *Config) { c.Detection.SweepInterval = 0 }, true},
		{"zero_passes_per_minute", func(c *Config) { c.Detection.PassesPerMinute = 0 }, true},
		{"weights_sum_below_one", func(c *Config) { c.Risk.ExposureWeight = 0.1 }, true},
		{"weights_sum_above_one", func(c *Config) { c.Risk.StalenessWeight = 0.5 }, true},
		{"negative_weight_compensated", func(c *Config) {
			c.Risk.StalenessWeight = -0.2
			c.Risk.ExposureWeight = 0.6
		}, true},
		{"reliability_out_of_range", func(c *Config) {
			c.Risk.Reliability = map[string]float64{"steam": 1.5}
		}, true},
		{"default_reliability_out_of_range", func(c *Config) { c.Risk.DefaultReliability = -0.1 }, true},
		{"volatility_depth_too_small", func(c *Config) { c.Risk.VolatilityDepth = 1 }, true},
		{"non_positive_rate", func(c *Config) {
			c.Pricing.Rates = map[string]float64{"USD": 0}
		}, true},
		{"negative_fee", func(c *Config) {
			c.Pricing.Fees = map[string]FeeConfig{"steam": {PlatformPct: -5}}
		}, true},
		{"valid_pricing_tables", func(c *Config) {
			c.Pricing.Rates = map[string]float64{"USD": 0.92}
			c.Pricing.Fees = map[string]FeeConfig{"steam": {PlatformPct: 5, PaymentPct: 1}}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Detection.MinProfitMargin != 10.0 {
		t.Errorf("min profit margin = %v, want 10.0", cfg.Detection.MinProfitMargin)
	}
	if cfg.Detection.MinAbsoluteProfit != 5.0 {
		t.Errorf("min absolute profit = %v, want 5.0", cfg.Detection.MinAbsoluteProfit)
	}
	if cfg.Detection.MaxInvestment != 1000.0 {
		t.Errorf("max investment = %v, want 1000.0", cfg.Detection.MaxInvestment)
	}
	if cfg.Detection.MaxHoldTime != 72*time.Hour {
		t.Errorf("max hold time = %v, want 72h", cfg.Detection.MaxHoldTime)
	}
	if cfg.Detection.ReportingCurrency != "EUR" {
		t.Errorf("reporting currency = %q, want EUR", cfg.Detection.ReportingCurrency)
	}
	if cfg.Risk.DefaultReliability != 0.8 {
		t.Errorf("default reliability = %v, want 0.8", cfg.Risk.DefaultReliability)
	}

	sum := cfg.Risk.StalenessWeight + cfg.Risk.VolatilityWeight +
		cfg.Risk.ReliabilityWeight + cfg.Risk.ExposureWeight
	if diff := sum - 1.0; diff > weightSumTolerance || diff < -weightSumTolerance {
		t.Errorf("default risk weights sum = %v, want 1", sum)
	}
}
