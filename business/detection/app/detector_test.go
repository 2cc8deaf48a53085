package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lmoretti/gamearb/business/detection/domain"
	obsDomain "github.com/lmoretti/gamearb/business/observation/domain"
	pricingDomain "github.com/lmoretti/gamearb/business/pricing/domain"
	"github.com/lmoretti/gamearb/internal/logger"
	"github.com/lmoretti/gamearb/internal/ratelimit"
)

type stubSource struct {
	observations map[domain.ProductID][]obsDomain.PriceObservation
}

func (s *stubSource) Products() []domain.ProductID {
	out := make([]domain.ProductID, 0, len(s.observations))
	for id := range s.observations {
		out = append(out, id)
	}
	return out
}

func (s *stubSource) Product(id domain.ProductID) []obsDomain.PriceObservation {
	return s.observations[id]
}

type captureSink struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (c *captureSink) Emit(_ context.Context, event domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return c.err
}

func (c *captureSink) Close() error { return nil }

func (c *captureSink) captured() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Event, len(c.events))
	copy(out, c.events)
	return out
}

func liveObs(t *testing.T, product, marketplace, price string) obsDomain.PriceObservation {
	t.Helper()
	obs, err := obsDomain.NewPriceObservation(product, marketplace, "EUR",
		decimal.RequireFromString(price), time.Now().UTC(), true)
	if err != nil {
		t.Fatal(err)
	}
	return obs
}

func testDetector(t *testing.T, source ObservationSource, sink EmissionSink, store *Store) *Detector {
	t.Helper()
	d, err := NewDetector(DetectorConfig{
		PassInterval:    20 * time.Millisecond,
		SweepInterval:   time.Hour,
		Workers:         2,
		FreshnessWindow: time.Hour,
	},
		testMatcher(t), store, source, sink,
		pricingDomain.Identity("EUR"),
		ratelimit.NewWithBurst(1000, 1000),
		logger.New(io.Discard, logger.LevelError, "test"),
	)
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}
	return d
}

func TestDetector_EmitsActivation(t *testing.T) {
	source := &stubSource{observations: map[domain.ProductID][]obsDomain.PriceObservation{
		"game-1": {
			liveObs(t, "game-1", "steam", "40"),
			liveObs(t, "game-1", "gog", "55"),
		},
	}}
	sink := &captureSink{}
	store := NewStore(72*time.Hour, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := testDetector(t, source, sink, store).Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() = %v, want deadline exceeded", err)
	}

	events := sink.captured()
	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	if events[0].Kind != domain.EventActivated {
		t.Errorf("first event = %s, want activated", events[0].Kind)
	}
	// Repeated passes over unchanged prices must not re-emit.
	if len(events) != 1 {
		t.Errorf("events = %d, want exactly 1 despite multiple passes", len(events))
	}
	if store.ActiveCount() != 1 {
		t.Errorf("active count = %d, want 1", store.ActiveCount())
	}
}

func TestDetector_SinkFailureKeepsState(t *testing.T) {
	source := &stubSource{observations: map[domain.ProductID][]obsDomain.PriceObservation{
		"game-1": {
			liveObs(t, "game-1", "steam", "40"),
			liveObs(t, "game-1", "gog", "55"),
		},
	}}
	sink := &captureSink{err: errors.New("downstream dead")}
	store := NewStore(72*time.Hour, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	testDetector(t, source, sink, store).Run(ctx)

	// Emission failed on every attempt, but the activation is committed: the
	// opportunity stays active and is not re-emitted on later passes.
	if store.ActiveCount() != 1 {
		t.Errorf("active count = %d, want 1 despite sink failures", store.ActiveCount())
	}
	if got := len(sink.captured()); got != 1 {
		t.Errorf("emission attempts = %d, want 1", got)
	}
}
