// Package domain contains the core domain types for the observation context.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/lmoretti/gamearb/business/pricing/domain"
)

// maxIDLen bounds identifiers coming off the wire.
const maxIDLen = 128

// ProductID identifies a digital product across marketplaces.
type ProductID string

// NewProductID validates a raw product identifier.
func NewProductID(raw string) (ProductID, error) {
	if err := validateID(raw); err != nil {
		return "", fmt.Errorf("observation: product id: %w", err)
	}
	return ProductID(raw), nil
}

func (p ProductID) String() string { return string(p) }

// MarketplaceID identifies a marketplace (e.g. "steam", "gog").
type MarketplaceID string

// NewMarketplaceID validates a raw marketplace identifier.
func NewMarketplaceID(raw string) (MarketplaceID, error) {
	if err := validateID(raw); err != nil {
		return "", fmt.Errorf("observation: marketplace id: %w", err)
	}
	return MarketplaceID(raw), nil
}

func (m MarketplaceID) String() string { return string(m) }

// validateID rejects malformed identifiers before they reach the matcher.
func validateID(raw string) error {
	if raw == "" {
		return fmt.Errorf("empty identifier")
	}
	if len(raw) > maxIDLen {
		return fmt.Errorf("identifier longer than %d bytes", maxIDLen)
	}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == ':':
		default:
			return fmt.Errorf("illegal character %q in identifier", r)
		}
	}
	return nil
}

// PriceUnavailable is the sentinel price meaning "no price". Observations
// carrying it never participate in profit arithmetic.
var PriceUnavailable = decimal.NewFromInt(-1)

// PriceObservation is a single timestamped price seen on one marketplace.
// Immutable once created; the feed owns it, the detection core only reads it.
type PriceObservation struct {
	Product     ProductID              `json:"product"`
	Marketplace MarketplaceID          `json:"marketplace"`
	Price       decimal.Decimal        `json:"price"`
	Currency    pricingDomain.Currency `json:"currency"`
	ObservedAt  time.Time              `json:"observed_at"`
	InStock     bool                   `json:"in_stock"`
}

// NewPriceObservation validates and builds an observation from raw feed data.
func NewPriceObservation(product, marketplace, currency string, price decimal.Decimal, observedAt time.Time, inStock bool) (PriceObservation, error) {
	pid, err := NewProductID(product)
	if err != nil {
		return PriceObservation{}, err
	}
	mid, err := NewMarketplaceID(marketplace)
	if err != nil {
		return PriceObservation{}, err
	}
	ccy, err := pricingDomain.NewCurrency(currency)
	if err != nil {
		return PriceObservation{}, err
	}
	if price.IsNegative() && !price.Equal(PriceUnavailable) {
		return PriceObservation{}, fmt.Errorf("observation: negative non-sentinel price %s", price)
	}
	if observedAt.IsZero() {
		return PriceObservation{}, fmt.Errorf("observation: missing timestamp")
	}

	return PriceObservation{
		Product:     pid,
		Marketplace: mid,
		Price:       price,
		Currency:    ccy,
		ObservedAt:  observedAt,
		InStock:     inStock,
	}, nil
}

// HasPrice reports whether the observation carries a usable price.
func (o PriceObservation) HasPrice() bool {
	return !o.Price.Equal(PriceUnavailable)
}

// Age returns how old the observation is relative to now.
func (o PriceObservation) Age(now time.Time) time.Duration {
	return now.Sub(o.ObservedAt)
}

// Fresh reports whether the observation is within the freshness window.
func (o PriceObservation) Fresh(now time.Time, window time.Duration) bool {
	return o.Age(now) <= window
}
