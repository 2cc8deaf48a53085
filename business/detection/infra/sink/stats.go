package sink

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lmoretti/gamearb/business/detection/domain"
)

// recentKeep bounds the event tail the dashboard shows.
const recentKeep = 50

// Snapshot is a point-in-time view of the session's aggregates.
type Snapshot struct {
	Activated    int
	Superseded   int
	Expired      int
	Active       int             // opportunities currently active, as seen by this sink
	ActiveProfit decimal.Decimal // summed profit of the active set
	Products     int             // distinct products with at least one active opportunity
	BestProfit   decimal.Decimal
	BestKey      string
	Recent       []domain.Event
	LastEvent    time.Time
	Since        time.Time
}

// Stats aggregates lifecycle events in memory for the dashboard. It never
// fails, so putting it in a fanout cannot poison the other sinks.
type Stats struct {
	mu         sync.RWMutex
	activated  int
	superseded int
	expired    int
	active     map[string]domain.Opportunity // identity key -> active record
	bestProfit decimal.Decimal
	bestKey    string
	recent     []domain.Event
	lastEvent  time.Time
	since      time.Time
}

// NewStats creates an empty aggregator.
func NewStats() *Stats {
	return &Stats{
		active: make(map[string]domain.Opportunity),
		since:  time.Now().UTC(),
	}
}

func (s *Stats) Emit(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := event.Opportunity.Key.String()
	switch event.Kind {
	case domain.EventActivated:
		s.activated++
		s.active[key] = event.Opportunity
		if event.Opportunity.Profit.GreaterThan(s.bestProfit) {
			s.bestProfit = event.Opportunity.Profit
			s.bestKey = key
		}
	case domain.EventSuperseded:
		s.superseded++
		delete(s.active, key)
	case domain.EventExpired:
		s.expired++
		delete(s.active, key)
	}

	s.lastEvent = event.At
	s.recent = append(s.recent, event)
	if len(s.recent) > recentKeep {
		s.recent = s.recent[len(s.recent)-recentKeep:]
	}
	return nil
}

// Snapshot returns a copy of the current aggregates, newest event last.
func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recent := make([]domain.Event, len(s.recent))
	copy(recent, s.recent)

	activeProfit := decimal.Zero
	products := make(map[domain.ProductID]struct{}, len(s.active))
	for _, opp := range s.active {
		activeProfit = activeProfit.Add(opp.Profit)
		products[opp.Key.Product] = struct{}{}
	}

	return Snapshot{
		Activated:    s.activated,
		Superseded:   s.superseded,
		Expired:      s.expired,
		Active:       len(s.active),
		ActiveProfit: activeProfit,
		Products:     len(products),
		BestProfit:   s.bestProfit,
		BestKey:      s.bestKey,
		Recent:       recent,
		LastEvent:    s.lastEvent,
		Since:        s.since,
	}
}

func (s *Stats) Close() error { return nil }
