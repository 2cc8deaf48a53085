// Package feed contains observation feed adapters. Every adapter decodes the
// same wire payload and hands validated observations to the ingestor.
package feed

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lmoretti/gamearb/business/observation/domain"
	"github.com/lmoretti/gamearb/internal/apperror"
)

// wirePayload is the JSON shape scrapers publish. Price is a string so the
// producers never round through a float; a missing price field means the
// sentinel "no price" value.
type wirePayload struct {
	Product     string    `json:"product"`
	Marketplace string    `json:"marketplace"`
	Price       *string   `json:"price"`
	Currency    string    `json:"currency"`
	ObservedAt  time.Time `json:"observed_at"`
	InStock     bool      `json:"in_stock"`
}

// decodeObservation parses and validates one wire payload.
func decodeObservation(data []byte) (domain.PriceObservation, error) {
	var p wirePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.PriceObservation{}, apperror.Wrap(err, apperror.CodeFeedDecodeFailed, "unmarshaling payload")
	}

	price := domain.PriceUnavailable
	if p.Price != nil {
		var err error
		price, err = decimal.NewFromString(*p.Price)
		if err != nil {
			return domain.PriceObservation{}, apperror.Wrap(err, apperror.CodeFeedDecodeFailed, "parsing price")
		}
	}

	obs, err := domain.NewPriceObservation(p.Product, p.Marketplace, p.Currency, price, p.ObservedAt, p.InStock)
	if err != nil {
		return domain.PriceObservation{}, apperror.Wrap(err, apperror.CodeInvalidObservation, "validating observation")
	}
	return obs, nil
}
