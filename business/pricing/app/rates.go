// Package app contains application services for the pricing context.
package app

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/lmoretti/gamearb/business/pricing/domain"
	"github.com/lmoretti/gamearb/internal/apperror"
)

// Rates converts marketplace currencies into the reporting currency. Rates
// are pushed in by an external collaborator (rate feed, cron job); the
// detection core only ever reads them through Normalize. Entries expire so a
// dead rate feed surfaces as skipped observations rather than stale pricing.
type Rates struct {
	reporting domain.Currency
	cache     *gocache.Cache
}

// DefaultRateTTL mirrors the hourly refresh cadence of the rate feed.
const DefaultRateTTL = time.Hour

// NewRates creates a rate table converting into the given reporting currency.
func NewRates(reporting domain.Currency, ttl time.Duration) *Rates {
	if ttl <= 0 {
		ttl = DefaultRateTTL
	}
	return &Rates{
		reporting: reporting,
		cache:     gocache.New(ttl, 2*ttl),
	}
}

// Reporting returns the reporting currency.
func (r *Rates) Reporting() domain.Currency {
	return r.reporting
}

// UpdateRate stores the conversion rate from the given currency into the
// reporting currency.
func (r *Rates) UpdateRate(from domain.Currency, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return apperror.Validation(apperror.CodeConversionFailed, "rate must be positive")
	}
	r.cache.Set(string(from), rate, gocache.DefaultExpiration)
	return nil
}

// SetStaticRate stores a non-expiring rate, for deployments that pin their
// conversion table in config instead of running a rate feed.
func (r *Rates) SetStaticRate(from domain.Currency, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return apperror.Validation(apperror.CodeConversionFailed, "rate must be positive")
	}
	r.cache.Set(string(from), rate, gocache.NoExpiration)
	return nil
}

// Normalize converts amount from the given currency into the reporting
// currency. The reporting currency itself converts as identity.
func (r *Rates) Normalize(amount decimal.Decimal, currency domain.Currency) (decimal.Decimal, error) {
	if currency == r.reporting {
		return amount, nil
	}

	v, ok := r.cache.Get(string(currency))
	if !ok {
		return decimal.Zero, apperror.Validation(apperror.CodeRateUnavailable, string(currency))
	}

	rate, ok := v.(decimal.Decimal)
	if !ok {
		return decimal.Zero, apperror.New(apperror.CodeConversionFailed, apperror.WithContext(string(currency)))
	}

	return amount.Mul(rate), nil
}

// NormalizeFunc adapts the rate table to the injected-function contract the
// matcher consumes.
func (r *Rates) NormalizeFunc() domain.NormalizeFunc {
	return r.Normalize
}
