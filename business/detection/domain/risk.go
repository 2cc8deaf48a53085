package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// RiskWeights weight the sub-scores of the risk model. They must sum to 1 so
// the convex combination of bounded sub-scores stays in [0,1].
type RiskWeights struct {
	Staleness   float64
	Volatility  float64
	Reliability float64
	Exposure    float64
}

const weightSumTolerance = 1e-9

// Validate rejects weight sets that would break the [0,1] score guarantee.
func (w RiskWeights) Validate() error {
	for _, v := range []float64{w.Staleness, w.Volatility, w.Reliability, w.Exposure} {
		if v < 0 {
			return fmt.Errorf("risk: weights must not be negative")
		}
	}
	if sum := w.Staleness + w.Volatility + w.Reliability + w.Exposure; math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("risk: weights must sum to 1, got %v", sum)
	}
	return nil
}

// RiskFactors are the contextual signals one scoring call consumes. Owned
// transiently by the matcher; never persisted. The caller captures "now" once
// per pass, so identical factors always yield an identical score.
type RiskFactors struct {
	Volatility        float64       // [0,1] recent price variance signal
	SourceReliability float64       // [0,1] rating of the sell-side marketplace
	TargetReliability float64       // [0,1] rating of the buy-side marketplace
	SourceAge         time.Duration // age of the sell-side observation
	TargetAge         time.Duration // age of the buy-side observation
	TargetPrice       decimal.Decimal
}
