package app

import (
	"context"

	pricingApp "github.com/lmoretti/gamearb/business/pricing/app"
	"github.com/lmoretti/gamearb/business/observation/domain"
	"github.com/lmoretti/gamearb/internal/logger"
)

// Ingestor is the single entry point feed adapters push observations through.
// It updates the book and feeds normalized prices into the volatility window.
// Malformed observations are the feed's problem to warn about before they get
// here; unconvertible ones are still booked (the matcher re-checks and warns)
// but skipped for volatility.
type Ingestor struct {
	book       *Book
	rates      *pricingApp.Rates
	volatility *pricingApp.VolatilityTracker
	logger     logger.LoggerInterface
}

// NewIngestor creates an Ingestor.
func NewIngestor(book *Book, rates *pricingApp.Rates, volatility *pricingApp.VolatilityTracker, log logger.LoggerInterface) *Ingestor {
	return &Ingestor{
		book:       book,
		rates:      rates,
		volatility: volatility,
		logger:     log,
	}
}

// Ingest records one observation.
func (i *Ingestor) Ingest(ctx context.Context, obs domain.PriceObservation) {
	if !i.book.Put(obs) {
		i.logger.Debug(ctx, "dropped non-newer observation",
			"product", obs.Product,
			"marketplace", obs.Marketplace,
		)
		return
	}

	if !obs.HasPrice() {
		return
	}

	normalized, err := i.rates.Normalize(obs.Price, obs.Currency)
	if err != nil {
		i.logger.Debug(ctx, "observation not recorded for volatility",
			"product", obs.Product,
			"currency", obs.Currency,
			"error", err,
		)
		return
	}
	i.volatility.Record(obs.Product.String(), normalized)
}
