// Package sink provides emission sink implementations for the detection context.
package sink

import (
	"context"

	"github.com/lmoretti/gamearb/business/detection/domain"
	"github.com/lmoretti/gamearb/internal/logger"
)

// Console logs every lifecycle event through the structured logger. The
// default sink for CLI runs.
type Console struct {
	log logger.LoggerInterface
}

// NewConsole creates a console sink.
func NewConsole(log logger.LoggerInterface) *Console {
	return &Console{log: log.With("sink", "console")}
}

func (c *Console) Emit(ctx context.Context, event domain.Event) error {
	opp := event.Opportunity
	switch event.Kind {
	case domain.EventActivated:
		c.log.Info(ctx, "opportunity activated",
			"key", opp.Key.String(),
			"buy", opp.TargetPrice.String(),
			"sell", opp.SourcePrice.String(),
			"profit", opp.Profit.StringFixed(2),
			"margin", opp.Margin.StringFixed(1)+"%",
			"net", opp.Fees.NetProfit.StringFixed(2),
			"risk", opp.Risk,
			"expires_at", opp.ExpiresAt)
	case domain.EventSuperseded:
		c.log.Info(ctx, "opportunity superseded",
			"key", opp.Key.String(),
			"profit", opp.Profit.StringFixed(2))
	case domain.EventExpired:
		c.log.Info(ctx, "opportunity expired",
			"key", opp.Key.String(),
			"profit", opp.Profit.StringFixed(2),
			"held_since", opp.CreatedAt)
	}
	return nil
}

func (c *Console) Close() error { return nil }
