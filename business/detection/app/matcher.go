package app

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lmoretti/gamearb/business/detection/domain"
	obsDomain "github.com/lmoretti/gamearb/business/observation/domain"
	pricingDomain "github.com/lmoretti/gamearb/business/pricing/domain"
)

// MatcherConfig holds the qualification thresholds.
type MatcherConfig struct {
	MinProfitMargin   decimal.Decimal // percentage
	MinAbsoluteProfit decimal.Decimal // reporting currency
	MaxInvestment     decimal.Decimal // reporting currency
	FreshnessWindow   time.Duration
	ReportingCurrency pricingDomain.Currency
}

// Skip reports an observation dropped for an input error (unknown currency,
// failed conversion). The pass continues; the caller decides how loudly to
// surface these.
type Skip struct {
	Observation obsDomain.PriceObservation
	Reason      error
}

// Matcher pairs the observations of one product across marketplaces into
// candidate opportunities. Pure: no side effects, no clock reads; the caller
// captures now once per pass and threads it through.
type Matcher struct {
	cfg         MatcherConfig
	scorer      *RiskScorer
	volatility  VolatilityFn
	reliability ReliabilityFn
	fees        pricingDomain.FeeTable
}

// NewMatcher creates a Matcher.
func NewMatcher(cfg MatcherConfig, scorer *RiskScorer, volatility VolatilityFn, reliability ReliabilityFn, fees pricingDomain.FeeTable) *Matcher {
	return &Matcher{
		cfg:         cfg,
		scorer:      scorer,
		volatility:  volatility,
		reliability: reliability,
		fees:        fees,
	}
}

// eligible is an observation that survived filtering, with its price already
// normalized into the reporting currency.
type eligible struct {
	obs        obsDomain.PriceObservation
	normalized decimal.Decimal
}

// Match produces every qualifying candidate for one product. Multi-way
// comparisons are not collapsed here: two pairs have different identity keys,
// so arbitration between them belongs to the lifecycle store and beyond.
func (m *Matcher) Match(observations []obsDomain.PriceObservation, now time.Time, normalize pricingDomain.NormalizeFunc) ([]domain.Candidate, []Skip) {
	var skips []Skip

	// One eligible observation per marketplace, newest wins.
	byMarket := make(map[domain.MarketplaceID]eligible, len(observations))
	for _, obs := range observations {
		if !obs.HasPrice() || !obs.InStock || !obs.Fresh(now, m.cfg.FreshnessWindow) {
			continue
		}
		if prev, ok := byMarket[obs.Marketplace]; ok && !obs.ObservedAt.After(prev.obs.ObservedAt) {
			continue
		}

		normalized, err := normalize(obs.Price, obs.Currency)
		if err != nil {
			skips = append(skips, Skip{Observation: obs, Reason: err})
			continue
		}
		byMarket[obs.Marketplace] = eligible{obs: obs, normalized: normalized}
	}

	if len(byMarket) < 2 {
		return nil, skips
	}

	var candidates []domain.Candidate
	for targetMarket, target := range byMarket {
		if target.normalized.GreaterThan(m.cfg.MaxInvestment) {
			continue
		}
		for sourceMarket, source := range byMarket {
			if sourceMarket == targetMarket {
				continue
			}
			if c, ok := m.qualify(target, source, now); ok {
				candidates = append(candidates, c)
			}
		}
	}

	return candidates, skips
}

// qualify checks one ordered (buy, sell) pair against the thresholds.
func (m *Matcher) qualify(target, source eligible, now time.Time) (domain.Candidate, bool) {
	if !source.normalized.GreaterThan(target.normalized) {
		return domain.Candidate{}, false
	}

	profit := source.normalized.Sub(target.normalized)
	if profit.LessThan(m.cfg.MinAbsoluteProfit) {
		return domain.Candidate{}, false
	}

	margin := profit.Div(target.normalized).Mul(decimal.NewFromInt(100))
	if margin.LessThan(m.cfg.MinProfitMargin) {
		return domain.Candidate{}, false
	}

	key := domain.IdentityKey{
		Product: target.obs.Product,
		Source:  source.obs.Marketplace,
		Target:  target.obs.Marketplace,
	}

	risk := m.scorer.Score(domain.RiskFactors{
		Volatility:        m.volatility(key.Product.String()),
		SourceReliability: m.reliability(key.Source),
		TargetReliability: m.reliability(key.Target),
		SourceAge:         source.obs.Age(now),
		TargetAge:         target.obs.Age(now),
		TargetPrice:       target.normalized,
	})

	observedAt := target.obs.ObservedAt
	if source.obs.ObservedAt.After(observedAt) {
		observedAt = source.obs.ObservedAt
	}

	return domain.Candidate{
		Key:         key,
		SourcePrice: pricingDomain.NewMoney(source.normalized, m.cfg.ReportingCurrency),
		TargetPrice: pricingDomain.NewMoney(target.normalized, m.cfg.ReportingCurrency),
		Profit:      profit,
		Margin:      margin,
		Risk:        risk,
		Fees:        m.fees.Breakdown(key.Target.String(), key.Source.String(), target.normalized, source.normalized),
		ObservedAt:  observedAt,
	}, true
}
