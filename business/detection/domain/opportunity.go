// Package domain contains the core domain types for the detection context.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	obsDomain "github.com/lmoretti/gamearb/business/observation/domain"
	pricingDomain "github.com/lmoretti/gamearb/business/pricing/domain"
)

// Status is the lifecycle state of an opportunity. Superseded and Expired
// are terminal: a record never becomes Active again, a later candidate for
// the same key creates a brand-new record.
type Status string

const (
	StatusActive     Status = "active"
	StatusSuperseded Status = "superseded"
	StatusExpired    Status = "expired"
)

// IdentityKey identifies one opportunity lineage. At most one Active
// opportunity exists per key at any instant.
//
// Naming convention, fixed by the downstream consumers: target is where you
// buy (the cheap side), source is where you sell (the expensive side).
type IdentityKey struct {
	Product ProductID     `json:"product"`
	Source  MarketplaceID `json:"source"`
	Target  MarketplaceID `json:"target"`
}

// Aliases keep detection signatures readable without re-validating IDs that
// already crossed the observation boundary.
type (
	ProductID     = obsDomain.ProductID
	MarketplaceID = obsDomain.MarketplaceID
)

func (k IdentityKey) String() string {
	return fmt.Sprintf("%s:%s->%s", k.Product, k.Target, k.Source)
}

// Candidate is a qualifying marketplace pair produced by the matcher, before
// the lifecycle store has arbitrated it against the active record.
type Candidate struct {
	Key         IdentityKey
	SourcePrice pricingDomain.Money // sell side, reporting currency
	TargetPrice pricingDomain.Money // buy side, reporting currency
	Profit      decimal.Decimal     // source - target, reporting currency
	Margin      decimal.Decimal     // profit / target * 100
	Risk        float64             // [0,1], higher = riskier
	Fees        pricingDomain.FeeBreakdown
	ObservedAt  time.Time // newer of the two observations
}

// Opportunity is an arbitrage opportunity the lifecycle store has accepted.
type Opportunity struct {
	Key             IdentityKey                `json:"key"`
	SourcePrice     pricingDomain.Money        `json:"source_price"`
	TargetPrice     pricingDomain.Money        `json:"target_price"`
	Profit          decimal.Decimal            `json:"profit"`
	Margin          decimal.Decimal            `json:"margin"`
	Risk            float64                    `json:"risk"`
	Fees            pricingDomain.FeeBreakdown `json:"fees"`
	Status          Status                     `json:"status"`
	CreatedAt       time.Time                  `json:"created_at"`
	ExpiresAt       time.Time                  `json:"expires_at"`
	LastRefreshedAt time.Time                  `json:"last_refreshed_at"`
}

// FromCandidate builds a fresh Active opportunity from a candidate.
func FromCandidate(c Candidate, now time.Time, holdTime time.Duration) Opportunity {
	return Opportunity{
		Key:             c.Key,
		SourcePrice:     c.SourcePrice,
		TargetPrice:     c.TargetPrice,
		Profit:          c.Profit,
		Margin:          c.Margin,
		Risk:            c.Risk,
		Fees:            c.Fees,
		Status:          StatusActive,
		CreatedAt:       now,
		ExpiresAt:       now.Add(holdTime),
		LastRefreshedAt: now,
	}
}

// Due reports whether the opportunity has outlived its hold time.
func (o Opportunity) Due(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// EventKind classifies lifecycle events emitted to the sink.
type EventKind string

const (
	EventActivated  EventKind = "activated"
	EventSuperseded EventKind = "superseded"
	EventExpired    EventKind = "expired"
)

// Event is the unit delivered to the emission sink.
type Event struct {
	Kind        EventKind   `json:"kind"`
	Opportunity Opportunity `json:"opportunity"`
	At          time.Time   `json:"at"`
}
