// Package app contains application services for the observation context.
package app

import (
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/lmoretti/gamearb/business/observation/domain"
)

// Book holds the latest observation per (product, marketplace). Feed adapters
// write into it; detection passes read per-product snapshots out of it.
type Book struct {
	mu         sync.RWMutex
	latest     map[domain.ProductID]map[domain.MarketplaceID]domain.PriceObservation
	lastUpdate time.Time
}

// NewBook creates an empty observation book.
func NewBook() *Book {
	return &Book{
		latest: make(map[domain.ProductID]map[domain.MarketplaceID]domain.PriceObservation),
	}
}

// Put records an observation, keeping only the newest per marketplace.
// Returns false when an equal or newer observation was already present.
func (b *Book) Put(obs domain.PriceObservation) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	byMarket, ok := b.latest[obs.Product]
	if !ok {
		byMarket = make(map[domain.MarketplaceID]domain.PriceObservation)
		b.latest[obs.Product] = byMarket
	}

	if existing, ok := byMarket[obs.Marketplace]; ok && !obs.ObservedAt.After(existing.ObservedAt) {
		return false
	}

	byMarket[obs.Marketplace] = obs
	if obs.ObservedAt.After(b.lastUpdate) {
		b.lastUpdate = obs.ObservedAt
	}
	return true
}

// Product returns the latest observations for one product across marketplaces.
func (b *Book) Product(product domain.ProductID) []domain.PriceObservation {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return lo.Values(b.latest[product])
}

// Products returns the identifiers of every product currently tracked.
func (b *Book) Products() []domain.ProductID {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return lo.Keys(b.latest)
}

// LastUpdate returns the newest observation timestamp seen so far.
func (b *Book) LastUpdate() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastUpdate
}

// Prune drops observations older than the window, and products left with no
// observations at all. Called periodically so dead products don't accumulate.
func (b *Book) Prune(now time.Time, window time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := 0
	for product, byMarket := range b.latest {
		for market, obs := range byMarket {
			if !obs.Fresh(now, window) {
				delete(byMarket, market)
				dropped++
			}
		}
		if len(byMarket) == 0 {
			delete(b.latest, product)
		}
	}
	return dropped
}
