package domain

import "github.com/shopspring/decimal"

// FeeSchedule describes the fees a marketplace charges on a sale.
// Percentages are expressed as percent values (5 means 5%).
type FeeSchedule struct {
	PlatformPct    decimal.Decimal `json:"platform_pct"`
	TransactionPct decimal.Decimal `json:"transaction_pct"`
	TransactionFix decimal.Decimal `json:"transaction_fix"` // fixed fee, reporting currency
	PaymentPct     decimal.Decimal `json:"payment_pct"`
}

// Apply returns the total fee charged on the given price.
func (f FeeSchedule) Apply(price decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	total := price.Mul(f.PlatformPct).Div(hundred)
	if f.TransactionFix.IsPositive() {
		total = total.Add(f.TransactionFix)
	} else {
		total = total.Add(price.Mul(f.TransactionPct).Div(hundred))
	}
	total = total.Add(price.Mul(f.PaymentPct).Div(hundred))
	return total
}

// FeeBreakdown annotates an opportunity with the cost side of executing it.
// Gross profit is the raw source minus target figure; net subtracts both
// marketplaces' fees.
type FeeBreakdown struct {
	GrossProfit decimal.Decimal `json:"gross_profit"`
	BuyFees     decimal.Decimal `json:"buy_fees"`
	SellFees    decimal.Decimal `json:"sell_fees"`
	NetProfit   decimal.Decimal `json:"net_profit"`
}

// FeeTable maps marketplace identifiers to their fee schedules. Marketplaces
// without an entry are treated as fee-free.
type FeeTable map[string]FeeSchedule

// Breakdown computes the fee breakdown for buying at targetPrice on the
// target marketplace and selling at sourcePrice on the source marketplace.
func (t FeeTable) Breakdown(targetMarketplace, sourceMarketplace string, targetPrice, sourcePrice decimal.Decimal) FeeBreakdown {
	gross := sourcePrice.Sub(targetPrice)
	buyFees := t[targetMarketplace].Apply(targetPrice)
	sellFees := t[sourceMarketplace].Apply(sourcePrice)

	return FeeBreakdown{
		GrossProfit: gross,
		BuyFees:     buyFees,
		SellFees:    sellFees,
		NetProfit:   gross.Sub(buyFees).Sub(sellFees),
	}
}
