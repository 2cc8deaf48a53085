package sink

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lmoretti/gamearb/business/detection/domain"
	"github.com/lmoretti/gamearb/internal/apperror"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS opportunity_events (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	kind             TEXT NOT NULL,
	product          TEXT NOT NULL,
	source           TEXT NOT NULL,
	target           TEXT NOT NULL,
	source_price     TEXT NOT NULL,
	target_price     TEXT NOT NULL,
	currency         TEXT NOT NULL,
	profit           TEXT NOT NULL,
	margin           TEXT NOT NULL,
	net_profit       TEXT NOT NULL,
	risk             REAL NOT NULL,
	status           TEXT NOT NULL,
	created_at       TIMESTAMP NOT NULL,
	expires_at       TIMESTAMP NOT NULL,
	emitted_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_product ON opportunity_events(product);
CREATE INDEX IF NOT EXISTS idx_events_emitted ON opportunity_events(emitted_at);
`

// History appends every lifecycle event to a SQLite table, the durable record
// behind post-hoc analysis of which opportunities existed and for how long.
// Prices are stored as decimal strings to avoid float drift.
type History struct {
	db *sql.DB
}

// NewHistory opens (and if needed initializes) the history database.
func NewHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeHistoryWriteFailed, "opening history db")
	}
	// modernc sqlite serializes writes itself; one connection avoids
	// SQLITE_BUSY under concurrent emission.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, apperror.Wrap(err, apperror.CodeHistoryWriteFailed, "initializing history schema")
	}
	return &History{db: db}, nil
}

func (h *History) Emit(ctx context.Context, event domain.Event) error {
	opp := event.Opportunity
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO opportunity_events
			(kind, product, source, target, source_price, target_price, currency,
			 profit, margin, net_profit, risk, status, created_at, expires_at, emitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(event.Kind),
		opp.Key.Product.String(),
		opp.Key.Source.String(),
		opp.Key.Target.String(),
		opp.SourcePrice.Amount.String(),
		opp.TargetPrice.Amount.String(),
		opp.SourcePrice.Currency.String(),
		opp.Profit.String(),
		opp.Margin.String(),
		opp.Fees.NetProfit.String(),
		opp.Risk,
		string(opp.Status),
		opp.CreatedAt.UTC(),
		opp.ExpiresAt.UTC(),
		event.At.UTC(),
	)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeHistoryWriteFailed, "inserting event")
	}
	return nil
}

// EventCountSince returns how many events were recorded after the cutoff.
func (h *History) EventCountSince(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := h.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM opportunity_events WHERE emitted_at >= ?`, cutoff.UTC()).Scan(&n)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.CodeHistoryWriteFailed, "counting events")
	}
	return n, nil
}

func (h *History) Close() error {
	return h.db.Close()
}
