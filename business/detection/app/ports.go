// Package app contains application services and port definitions for the detection context.
package app

import (
	"context"
	"time"

	"github.com/lmoretti/gamearb/business/detection/domain"
	obsDomain "github.com/lmoretti/gamearb/business/observation/domain"
)

// EmissionSink receives lifecycle events. It is invoked outside the store's
// locks, and its result never affects the store's committed state: a failed
// emission is logged and retried by the sink's own policy, never by
// re-running the match.
type EmissionSink interface {
	// Emit delivers one event. May be I/O-bound.
	Emit(ctx context.Context, event domain.Event) error

	// Close releases sink resources.
	Close() error
}

// ObservationSource yields the live observations a detection pass reads.
// The observation book implements it.
type ObservationSource interface {
	// Products lists every product with at least one observation.
	Products() []domain.ProductID

	// Product returns the latest observation per marketplace for one product.
	Product(id domain.ProductID) []obsDomain.PriceObservation
}

// Pruner is optionally implemented by observation sources that can drop
// stale state between passes.
type Pruner interface {
	Prune(now time.Time, window time.Duration) int
}

// VolatilityFn reports the [0,1] volatility signal for a product.
type VolatilityFn func(product string) float64

// ReliabilityFn reports the [0,1] reliability rating of a marketplace.
type ReliabilityFn func(marketplace domain.MarketplaceID) float64

// StaticReliability builds a ReliabilityFn from a config rating table with a
// default for unknown marketplaces.
func StaticReliability(ratings map[string]float64, fallback float64) ReliabilityFn {
	return func(marketplace domain.MarketplaceID) float64 {
		if r, ok := ratings[marketplace.String()]; ok {
			return r
		}
		return fallback
	}
}
