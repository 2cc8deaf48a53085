package app

import (
	"math"
	"sync"

	"github.com/shopspring/decimal"
)

// defaultVolatility is reported for products without enough history to
// compute a meaningful variance: unknown is treated as medium risk.
const defaultVolatility = 0.5

// VolatilityTracker keeps a bounded window of recent normalized prices per
// product and reports the coefficient of variation as a [0,1] volatility
// signal for risk scoring.
type VolatilityTracker struct {
	mu     sync.Mutex
	depth  int
	series map[string][]float64
}

// NewVolatilityTracker creates a tracker keeping up to depth prices per product.
func NewVolatilityTracker(depth int) *VolatilityTracker {
	if depth < 2 {
		depth = 2
	}
	return &VolatilityTracker{
		depth:  depth,
		series: make(map[string][]float64),
	}
}

// Record appends a normalized price for the product, evicting the oldest
// entry once the window is full.
func (t *VolatilityTracker) Record(product string, price decimal.Decimal) {
	p, _ := price.Float64()
	if p <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := append(t.series[product], p)
	if len(s) > t.depth {
		s = s[len(s)-t.depth:]
	}
	t.series[product] = s
}

// Coefficient returns stddev/mean of the recorded prices, clamped to [0,1].
// Products with fewer than two observations report the medium default.
func (t *VolatilityTracker) Coefficient(product string) float64 {
	t.mu.Lock()
	s := t.series[product]
	t.mu.Unlock()

	if len(s) < 2 {
		return defaultVolatility
	}

	var sum float64
	for _, p := range s {
		sum += p
	}
	mean := sum / float64(len(s))
	if mean <= 0 {
		return defaultVolatility
	}

	var varsum float64
	for _, p := range s {
		d := p - mean
		varsum += d * d
	}
	cv := math.Sqrt(varsum/float64(len(s))) / mean

	if cv > 1 {
		return 1
	}
	return cv
}
