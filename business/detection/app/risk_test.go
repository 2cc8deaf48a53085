package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lmoretti/gamearb/business/detection/domain"
)

func defaultWeights() domain.RiskWeights {
	return domain.RiskWeights{Staleness: 0.2, Volatility: 0.3, Reliability: 0.3, Exposure: 0.2}
}

func TestRiskScorer_Score(t *testing.T) {
	scorer := NewRiskScorer(defaultWeights(), time.Hour, decimal.RequireFromString("1000"))

	tests := []struct {
		name    string
		factors domain.RiskFactors
		want    float64
	}{
		{
			name: "all_safe_signals",
			factors: domain.RiskFactors{
				Volatility:        0,
				SourceReliability: 1,
				TargetReliability: 1,
				SourceAge:         0,
				TargetAge:         0,
				TargetPrice:       decimal.Zero,
			},
			want: 0,
		},
		{
			name: "all_worst_signals",
			factors: domain.RiskFactors{
				Volatility:        1,
				SourceReliability: 0,
				TargetReliability: 0,
				SourceAge:         2 * time.Hour,
				TargetAge:         2 * time.Hour,
				TargetPrice:       decimal.RequireFromString("1000"),
			},
			want: 1,
		},
		{
			name: "mixed_signals",
			// staleness 0.5, volatility 0.4, reliability 1-0.8=0.2, exposure 0.1
			// 0.2*0.5 + 0.3*0.4 + 0.3*0.2 + 0.2*0.1 = 0.30
			factors: domain.RiskFactors{
				Volatility:        0.4,
				SourceReliability: 0.8,
				TargetReliability: 0.9,
				SourceAge:         30 * time.Minute,
				TargetAge:         10 * time.Minute,
				TargetPrice:       decimal.RequireFromString("100"),
			},
			want: 0.30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.factors)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRiskScorer_Deterministic(t *testing.T) {
	scorer := NewRiskScorer(defaultWeights(), time.Hour, decimal.RequireFromString("1000"))
	factors := domain.RiskFactors{
		Volatility:        0.37,
		SourceReliability: 0.71,
		TargetReliability: 0.93,
		SourceAge:         17 * time.Minute,
		TargetAge:         3 * time.Minute,
		TargetPrice:       decimal.RequireFromString("123.45"),
	}

	first := scorer.Score(factors)
	for i := 0; i < 100; i++ {
		if got := scorer.Score(factors); got != first {
			t.Fatalf("score changed between calls: %v then %v", first, got)
		}
	}
}

func TestRiskScorer_OutOfRangeInputsClamped(t *testing.T) {
	scorer := NewRiskScorer(defaultWeights(), time.Hour, decimal.RequireFromString("1000"))

	factors := domain.RiskFactors{
		Volatility:        3.5,
		SourceReliability: -2,
		TargetReliability: 7,
		SourceAge:         100 * time.Hour,
		TargetAge:         -time.Minute,
		TargetPrice:       decimal.RequireFromString("99999"),
	}
	got := scorer.Score(factors)
	if got < 0 || got > 1 {
		t.Errorf("score = %v, want within [0,1]", got)
	}
}

func TestRiskScorer_WeakerReliabilityDominates(t *testing.T) {
	scorer := NewRiskScorer(domain.RiskWeights{Reliability: 1}, time.Hour, decimal.RequireFromString("1000"))

	factors := domain.RiskFactors{
		SourceReliability: 0.2,
		TargetReliability: 0.95,
	}
	got := scorer.Score(factors)
	if diff := got - 0.8; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("score = %v, want 0.8 (driven by the weaker side)", got)
	}
}

func TestRiskWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		weights domain.RiskWeights
		wantErr bool
	}{
		{"valid_default", defaultWeights(), false},
		{"valid_single_weight", domain.RiskWeights{Volatility: 1}, false},
		{"sum_below_one", domain.RiskWeights{Staleness: 0.2, Volatility: 0.3}, true},
		{"sum_above_one", domain.RiskWeights{Staleness: 0.5, Volatility: 0.5, Reliability: 0.5}, true},
		{"negative_weight", domain.RiskWeights{Staleness: -0.2, Volatility: 0.6, Reliability: 0.3, Exposure: 0.3}, true},
		{"tolerates_float_noise", domain.RiskWeights{Staleness: 0.1, Volatility: 0.2, Reliability: 0.3, Exposure: 0.4}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
