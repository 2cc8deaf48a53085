// Package domain contains the core domain types for the pricing context.
package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 style three-letter currency code.
type Currency string

// NewCurrency validates and normalizes a currency code.
func NewCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("pricing: invalid currency code %q", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("pricing: invalid currency code %q", code)
		}
	}
	return Currency(code), nil
}

func (c Currency) String() string { return string(c) }

// Money is an amount in a specific currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// NewMoney creates a Money value.
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

// String returns e.g. "41.99 EUR".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}

// NormalizeFunc converts an amount from one currency into the reporting
// currency. It is injected into the detection core so the core never carries
// a fixed exchange rate of its own. Implementations must be pure with respect
// to their inputs for the duration of one detection pass.
type NormalizeFunc func(amount decimal.Decimal, currency Currency) (decimal.Decimal, error)

// Identity returns a NormalizeFunc that accepts only the reporting currency
// itself. Useful for single-currency deployments and tests.
func Identity(reporting Currency) NormalizeFunc {
	return func(amount decimal.Decimal, currency Currency) (decimal.Decimal, error) {
		if currency != reporting {
			return decimal.Zero, fmt.Errorf("pricing: no rate for %s", currency)
		}
		return amount, nil
	}
}
