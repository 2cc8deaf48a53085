package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lmoretti/gamearb/business/detection/domain"
	pricingDomain "github.com/lmoretti/gamearb/business/pricing/domain"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func makeEvent(t *testing.T, kind domain.EventKind, product, profit string) domain.Event {
	t.Helper()
	p := decimal.RequireFromString(profit)
	return domain.Event{
		Kind: kind,
		Opportunity: domain.Opportunity{
			Key: domain.IdentityKey{
				Product: domain.ProductID(product),
				Source:  "gog",
				Target:  "steam",
			},
			SourcePrice: pricingDomain.NewMoney(decimal.RequireFromString("55"), "EUR"),
			TargetPrice: pricingDomain.NewMoney(decimal.RequireFromString("40"), "EUR"),
			Profit:      p,
			Margin:      decimal.RequireFromString("37.5"),
			Risk:        0.3,
			Status:      domain.StatusActive,
			CreatedAt:   testNow,
			ExpiresAt:   testNow.Add(72 * time.Hour),
		},
		At: testNow,
	}
}

func TestStats_Aggregates(t *testing.T) {
	s := NewStats()
	ctx := context.Background()

	s.Emit(ctx, makeEvent(t, domain.EventActivated, "game-1", "15"))
	s.Emit(ctx, makeEvent(t, domain.EventActivated, "game-2", "25"))
	s.Emit(ctx, makeEvent(t, domain.EventSuperseded, "game-1", "15"))
	s.Emit(ctx, makeEvent(t, domain.EventExpired, "game-2", "25"))

	snap := s.Snapshot()
	if snap.Activated != 2 || snap.Superseded != 1 || snap.Expired != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", snap.Activated, snap.Superseded, snap.Expired)
	}
	if !snap.BestProfit.Equal(decimal.RequireFromString("25")) {
		t.Errorf("best profit = %s, want 25", snap.BestProfit)
	}
	if snap.BestKey != "game-2:steam->gog" {
		t.Errorf("best key = %s, want game-2:steam->gog", snap.BestKey)
	}
	if len(snap.Recent) != 4 {
		t.Errorf("recent events = %d, want 4", len(snap.Recent))
	}
	// Both lineages ended terminal, so the active aggregates are back to zero.
	if snap.Active != 0 || snap.Products != 0 {
		t.Errorf("active/products = %d/%d, want 0/0", snap.Active, snap.Products)
	}
	if !snap.ActiveProfit.IsZero() {
		t.Errorf("active profit = %s, want 0", snap.ActiveProfit)
	}
	if !snap.LastEvent.Equal(testNow) {
		t.Errorf("last event = %v, want %v", snap.LastEvent, testNow)
	}
}

func TestStats_ActiveAggregates(t *testing.T) {
	s := NewStats()
	ctx := context.Background()

	s.Emit(ctx, makeEvent(t, domain.EventActivated, "game-1", "15"))
	s.Emit(ctx, makeEvent(t, domain.EventActivated, "game-2", "25"))
	// game-1 is superseded by a richer record for the same key.
	s.Emit(ctx, makeEvent(t, domain.EventSuperseded, "game-1", "15"))
	s.Emit(ctx, makeEvent(t, domain.EventActivated, "game-1", "30"))

	snap := s.Snapshot()
	if snap.Active != 2 {
		t.Errorf("active = %d, want 2", snap.Active)
	}
	if !snap.ActiveProfit.Equal(decimal.RequireFromString("55")) {
		t.Errorf("active profit = %s, want 55", snap.ActiveProfit)
	}
	if snap.Products != 2 {
		t.Errorf("products = %d, want 2", snap.Products)
	}
	if !snap.BestProfit.Equal(decimal.RequireFromString("30")) {
		t.Errorf("best profit = %s, want 30", snap.BestProfit)
	}
}

func TestStats_RecentTailBounded(t *testing.T) {
	s := NewStats()
	ctx := context.Background()

	for i := 0; i < recentKeep+10; i++ {
		s.Emit(ctx, makeEvent(t, domain.EventActivated, "game-1", "15"))
	}
	if got := len(s.Snapshot().Recent); got != recentKeep {
		t.Errorf("recent events = %d, want %d", got, recentKeep)
	}
}

type stubSink struct {
	events []domain.Event
	err    error
	closed bool
}

func (s *stubSink) Emit(_ context.Context, event domain.Event) error {
	s.events = append(s.events, event)
	return s.err
}

func (s *stubSink) Close() error {
	s.closed = true
	return nil
}

func TestFanout_DeliversToAll(t *testing.T) {
	a, b := &stubSink{}, &stubSink{}
	f := NewFanout(a, b)

	if err := f.Emit(context.Background(), makeEvent(t, domain.EventActivated, "game-1", "15")); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("deliveries = %d/%d, want 1/1", len(a.events), len(b.events))
	}
}

func TestFanout_FailureDoesNotStopOthers(t *testing.T) {
	failing := &stubSink{err: errors.New("down")}
	healthy := &stubSink{}
	f := NewFanout(failing, healthy)

	err := f.Emit(context.Background(), makeEvent(t, domain.EventActivated, "game-1", "15"))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(healthy.events) != 1 {
		t.Errorf("healthy sink got %d events, want 1", len(healthy.events))
	}
}

func TestFanout_Close(t *testing.T) {
	a, b := &stubSink{}, &stubSink{}
	f := NewFanout(a, b)
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("not all sinks closed")
	}
}
