package app

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lmoretti/gamearb/business/detection/domain"
	pricingDomain "github.com/lmoretti/gamearb/business/pricing/domain"
)

const (
	testHoldTime     = 72 * time.Hour
	testRefreshGrace = time.Minute
)

func makeCandidate(t *testing.T, product, source, target, profit string) domain.Candidate {
	t.Helper()
	p := decimal.RequireFromString(profit)
	buy := decimal.RequireFromString("40")
	return domain.Candidate{
		Key: domain.IdentityKey{
			Product: domain.ProductID(product),
			Source:  domain.MarketplaceID(source),
			Target:  domain.MarketplaceID(target),
		},
		SourcePrice: pricingDomain.NewMoney(buy.Add(p), "EUR"),
		TargetPrice: pricingDomain.NewMoney(buy, "EUR"),
		Profit:      p,
		Margin:      p.Div(buy).Mul(decimal.NewFromInt(100)),
		Risk:        0.3,
		ObservedAt:  testNow,
	}
}

func kinds(events []domain.Event) []domain.EventKind {
	out := make([]domain.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestStore_ActivateNewKey(t *testing.T) {
	s := NewStore(testHoldTime, testRefreshGrace)

	events := s.Apply(makeCandidate(t, "game-1", "gog", "steam", "15"), testNow)
	if len(events) != 1 || events[0].Kind != domain.EventActivated {
		t.Fatalf("got events %v, want [activated]", kinds(events))
	}

	opp := events[0].Opportunity
	if opp.Status != domain.StatusActive {
		t.Errorf("status = %s, want active", opp.Status)
	}
	if !opp.ExpiresAt.Equal(testNow.Add(testHoldTime)) {
		t.Errorf("expires at %v, want %v", opp.ExpiresAt, testNow.Add(testHoldTime))
	}
	if got := s.ActiveCount(); got != 1 {
		t.Errorf("active count = %d, want 1", got)
	}
}

func TestStore_DistinctKeysIndependent(t *testing.T) {
	s := NewStore(testHoldTime, testRefreshGrace)

	s.Apply(makeCandidate(t, "game-1", "gog", "steam", "15"), testNow)
	events := s.Apply(makeCandidate(t, "game-1", "steam", "gog", "15"), testNow)
	if len(events) != 1 || events[0].Kind != domain.EventActivated {
		t.Fatalf("reversed direction: got %v, want [activated]", kinds(events))
	}
	if got := s.ActiveCount(); got != 2 {
		t.Errorf("active count = %d, want 2", got)
	}
}

func TestStore_SupersedeOnStrictlyGreaterProfit(t *testing.T) {
	s := NewStore(testHoldTime, testRefreshGrace)
	s.Apply(makeCandidate(t, "game-1", "gog", "steam", "15"), testNow)

	later := testNow.Add(time.Minute)
	events := s.Apply(makeCandidate(t, "game-1", "gog", "steam", "20"), later)

	want := []domain.EventKind{domain.EventSuperseded, domain.EventActivated}
	got := kinds(events)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
	if events[0].Opportunity.Status != domain.StatusSuperseded {
		t.Errorf("old record status = %s, want superseded", events[0].Opportunity.Status)
	}
	if !events[1].Opportunity.Profit.Equal(decimal.RequireFromString("20")) {
		t.Errorf("new record profit = %s, want 20", events[1].Opportunity.Profit)
	}
	if !events[1].Opportunity.ExpiresAt.Equal(later.Add(testHoldTime)) {
		t.Errorf("new record did not get a fresh hold time")
	}
	if got := s.ActiveCount(); got != 1 {
		t.Errorf("active count = %d, want 1", got)
	}
}

func TestStore_EqualProfitRefreshes(t *testing.T) {
	s := NewStore(testHoldTime, testRefreshGrace)
	activated := s.Apply(makeCandidate(t, "game-1", "gog", "steam", "15"), testNow)
	originalExpiry := activated[0].Opportunity.ExpiresAt

	later := testNow.Add(10 * time.Minute)
	events := s.Apply(makeCandidate(t, "game-1", "gog", "steam", "15"), later)
	if len(events) != 0 {
		t.Fatalf("equal profit: got %v, want no events", kinds(events))
	}

	recs := s.ActiveSnapshot()
	if len(recs) != 1 {
		t.Fatalf("active records = %d, want 1", len(recs))
	}
	if !recs[0].LastRefreshedAt.Equal(later) {
		t.Errorf("last refreshed = %v, want %v", recs[0].LastRefreshedAt, later)
	}
	if !recs[0].ExpiresAt.Equal(originalExpiry) {
		t.Errorf("refresh moved expiry from %v to %v", originalExpiry, recs[0].ExpiresAt)
	}
	if !recs[0].CreatedAt.Equal(testNow) {
		t.Errorf("refresh changed created at")
	}
}

func TestStore_LowerProfitRefreshes(t *testing.T) {
	s := NewStore(testHoldTime, testRefreshGrace)
	s.Apply(makeCandidate(t, "game-1", "gog", "steam", "15"), testNow)

	later := testNow.Add(10 * time.Minute)
	events := s.Apply(makeCandidate(t, "game-1", "gog", "steam", "10"), later)
	if len(events) != 0 {
		t.Fatalf("lower profit: got %v, want no events", kinds(events))
	}

	recs := s.ActiveSnapshot()
	if !recs[0].Profit.Equal(decimal.RequireFromString("15")) {
		t.Errorf("active profit = %s, want the original 15", recs[0].Profit)
	}
}

func TestStore_SweepExpiresDueRecords(t *testing.T) {
	s := NewStore(testHoldTime, testRefreshGrace)
	s.Apply(makeCandidate(t, "game-1", "gog", "steam", "15"), testNow)
	s.Apply(makeCandidate(t, "game-2", "gog", "steam", "8"), testNow.Add(time.Hour))

	// Only game-1 is due at this instant.
	sweepAt := testNow.Add(testHoldTime)
	events := s.Sweep(sweepAt)
	if len(events) != 1 || events[0].Kind != domain.EventExpired {
		t.Fatalf("got %v, want [expired]", kinds(events))
	}
	if events[0].Opportunity.Key.Product != "game-1" {
		t.Errorf("expired product = %s, want game-1", events[0].Opportunity.Key.Product)
	}
	if got := s.ActiveCount(); got != 1 {
		t.Errorf("active count = %d, want 1", got)
	}

	// A second sweep must not emit the same expiry again.
	if again := s.Sweep(sweepAt); len(again) != 0 {
		t.Fatalf("second sweep re-emitted %v", kinds(again))
	}
}

func TestStore_NewRecordAfterExpiry(t *testing.T) {
	s := NewStore(testHoldTime, testRefreshGrace)
	s.Apply(makeCandidate(t, "game-1", "gog", "steam", "15"), testNow)

	sweepAt := testNow.Add(testHoldTime)
	s.Sweep(sweepAt)

	// Same key, lower profit than the expired record: still a fresh activation,
	// terminal records never arbitrate against new candidates.
	events := s.Apply(makeCandidate(t, "game-1", "gog", "steam", "6"), sweepAt.Add(time.Minute))
	if len(events) != 1 || events[0].Kind != domain.EventActivated {
		t.Fatalf("got %v, want [activated]", kinds(events))
	}
	if events[0].Opportunity.Status != domain.StatusActive {
		t.Errorf("status = %s, want active", events[0].Opportunity.Status)
	}
}

func TestStore_SweepSparesRecentlyRefreshed(t *testing.T) {
	s := NewStore(testHoldTime, testRefreshGrace)
	s.Apply(makeCandidate(t, "game-1", "gog", "steam", "15"), testNow)

	// The spread is still being found right up to the hold time boundary.
	refreshAt := testNow.Add(testHoldTime - time.Second)
	if events := s.Apply(makeCandidate(t, "game-1", "gog", "steam", "15"), refreshAt); len(events) != 0 {
		t.Fatalf("refresh emitted %v", kinds(events))
	}

	// Past ExpiresAt, but within one pass of the last refresh: still alive.
	events := s.Sweep(testNow.Add(testHoldTime + time.Second))
	if len(events) != 0 {
		t.Fatalf("sweep expired a freshly refreshed record: %v", kinds(events))
	}
	if got := s.ActiveCount(); got != 1 {
		t.Fatalf("active count = %d, want 1", got)
	}

	// Once a full grace passes without a candidate, the expiry lands.
	events = s.Sweep(refreshAt.Add(testRefreshGrace))
	if len(events) != 1 || events[0].Kind != domain.EventExpired {
		t.Fatalf("got %v, want [expired]", kinds(events))
	}
	if got := s.ActiveCount(); got != 0 {
		t.Errorf("active count = %d, want 0", got)
	}
}

func TestStore_ConcurrentSingleKey(t *testing.T) {
	s := NewStore(testHoldTime, testRefreshGrace)

	const goroutines = 8
	const perGoroutine = 100

	var mu sync.Mutex
	var events []domain.Event

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				profit := fmt.Sprintf("%d", g*perGoroutine+i+1)
				got := s.Apply(makeCandidate(t, "game-1", "gog", "steam", profit), testNow)
				mu.Lock()
				events = append(events, got...)
				mu.Unlock()
			}
			// Nothing is due yet, but the sweep must contend for the same locks.
			if expired := s.Sweep(testNow); len(expired) != 0 {
				t.Errorf("premature expiry under contention: %v", kinds(expired))
			}
		}(g)
	}
	wg.Wait()

	if got := s.ActiveCount(); got != 1 {
		t.Fatalf("active count = %d, want 1", got)
	}

	// Whatever the interleaving, the maximum profit must end up active and
	// every activation beyond the first must be paired with a supersession.
	maxProfit := decimal.NewFromInt(goroutines * perGoroutine)
	if recs := s.ActiveSnapshot(); !recs[0].Profit.Equal(maxProfit) {
		t.Errorf("active profit = %s, want %s", recs[0].Profit, maxProfit)
	}

	var activated, superseded int
	for _, ev := range events {
		switch ev.Kind {
		case domain.EventActivated:
			activated++
		case domain.EventSuperseded:
			superseded++
		default:
			t.Errorf("unexpected event kind %s", ev.Kind)
		}
	}
	if activated != superseded+1 {
		t.Errorf("activated = %d, superseded = %d, want activations to exceed supersessions by exactly 1", activated, superseded)
	}
}

func TestStore_TerminalTailRetained(t *testing.T) {
	s := NewStore(testHoldTime, testRefreshGrace)
	s.Apply(makeCandidate(t, "game-1", "gog", "steam", "15"), testNow)
	s.Apply(makeCandidate(t, "game-1", "gog", "steam", "20"), testNow.Add(time.Minute))
	s.Sweep(testNow.Add(time.Minute).Add(testHoldTime))

	terminal := s.Terminal()
	if len(terminal) != 2 {
		t.Fatalf("terminal records = %d, want 2", len(terminal))
	}
	if terminal[0].Status != domain.StatusSuperseded || terminal[1].Status != domain.StatusExpired {
		t.Errorf("terminal statuses = %s, %s", terminal[0].Status, terminal[1].Status)
	}
}
