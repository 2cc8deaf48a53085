package app

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lmoretti/gamearb/business/detection/domain"
)

// RiskScorer maps a candidate's factors to a risk score in [0,1], higher
// meaning riskier. The score is a convex weighted sum of bounded sub-scores,
// so with weights summing to 1 it cannot leave [0,1]. Scoring is
// deterministic: no wall-clock reads, everything comes in via the factors.
type RiskScorer struct {
	weights         domain.RiskWeights
	freshnessWindow time.Duration
	maxInvestment   decimal.Decimal
}

// NewRiskScorer creates a scorer. Weights must already be validated.
func NewRiskScorer(weights domain.RiskWeights, freshnessWindow time.Duration, maxInvestment decimal.Decimal) *RiskScorer {
	return &RiskScorer{
		weights:         weights,
		freshnessWindow: freshnessWindow,
		maxInvestment:   maxInvestment,
	}
}

// Score computes the composite risk score.
func (s *RiskScorer) Score(f domain.RiskFactors) float64 {
	staleness := s.stalenessScore(f)
	volatility := clamp01(f.Volatility)
	reliability := 1 - weakerOf(f.SourceReliability, f.TargetReliability)
	exposure := s.exposureScore(f.TargetPrice)

	score := s.weights.Staleness*staleness +
		s.weights.Volatility*volatility +
		s.weights.Reliability*reliability +
		s.weights.Exposure*exposure

	return clamp01(score)
}

// stalenessScore grows with the age of the older observation, saturating at
// the freshness window boundary.
func (s *RiskScorer) stalenessScore(f domain.RiskFactors) float64 {
	age := f.SourceAge
	if f.TargetAge > age {
		age = f.TargetAge
	}
	if age <= 0 {
		return 0
	}
	return clamp01(float64(age) / float64(s.freshnessWindow))
}

// exposureScore is the share of the investment cap the buy side consumes.
func (s *RiskScorer) exposureScore(targetPrice decimal.Decimal) float64 {
	if !s.maxInvestment.IsPositive() {
		return 1
	}
	ratio, _ := targetPrice.Div(s.maxInvestment).Float64()
	return clamp01(ratio)
}

func weakerOf(a, b float64) float64 {
	if b < a {
		a = b
	}
	return clamp01(a)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
