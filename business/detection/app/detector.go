package app

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/lmoretti/gamearb/business/detection/domain"
	pricingDomain "github.com/lmoretti/gamearb/business/pricing/domain"
	"github.com/lmoretti/gamearb/internal/apm"
	"github.com/lmoretti/gamearb/internal/logger"
	"github.com/lmoretti/gamearb/internal/ratelimit"
)

// DetectorConfig holds the pacing knobs of the detection loop.
type DetectorConfig struct {
	PassInterval    time.Duration
	SweepInterval   time.Duration
	Workers         int
	FreshnessWindow time.Duration
}

// Detector drives the detection loop: every pass it walks the observation
// book product by product, matches candidates, arbitrates them through the
// lifecycle store and emits the resulting events. A separate timer sweeps
// expired records. Products are fanned out over a bounded worker pool and a
// rate limiter keeps the pass pace aligned with the feed's throughput.
type Detector struct {
	cfg       DetectorConfig
	matcher   *Matcher
	store     *Store
	source    ObservationSource
	sink      EmissionSink
	normalize pricingDomain.NormalizeFunc
	limiter   *ratelimit.Limiter
	log       logger.LoggerInterface
	tracer    apm.Tracer

	passCounter      metric.Int64Counter
	candidateCounter metric.Int64Counter
	eventCounter     metric.Int64Counter
	skipCounter      metric.Int64Counter
}

// NewDetector wires a detector. The observable active-opportunities gauge is
// registered here so dashboards see the store without polling it.
func NewDetector(
	cfg DetectorConfig,
	matcher *Matcher,
	store *Store,
	source ObservationSource,
	sink EmissionSink,
	normalize pricingDomain.NormalizeFunc,
	limiter *ratelimit.Limiter,
	log logger.LoggerInterface,
) (*Detector, error) {
	meter := otel.Meter("gamearb.detection")

	passes, err := meter.Int64Counter("detection.passes",
		metric.WithDescription("Completed detection passes"))
	if err != nil {
		return nil, err
	}
	candidates, err := meter.Int64Counter("detection.candidates",
		metric.WithDescription("Qualifying candidates produced by the matcher"))
	if err != nil {
		return nil, err
	}
	events, err := meter.Int64Counter("detection.events",
		metric.WithDescription("Lifecycle events emitted"))
	if err != nil {
		return nil, err
	}
	skips, err := meter.Int64Counter("detection.skips",
		metric.WithDescription("Observations dropped for input errors"))
	if err != nil {
		return nil, err
	}

	_, err = meter.Int64ObservableGauge("detection.active_opportunities",
		metric.WithDescription("Currently active opportunities"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(store.ActiveCount()))
			return nil
		}))
	if err != nil {
		return nil, err
	}

	return &Detector{
		cfg:              cfg,
		matcher:          matcher,
		store:            store,
		source:           source,
		sink:             sink,
		normalize:        normalize,
		limiter:          limiter,
		log:              log,
		tracer:           apm.NewTracer("gamearb.detection"),
		passCounter:      passes,
		candidateCounter: candidates,
		eventCounter:     events,
		skipCounter:      skips,
	}, nil
}

// Run blocks until ctx is cancelled, alternating passes and sweeps on their
// own timers. A pass runs immediately at startup.
func (d *Detector) Run(ctx context.Context) error {
	passTicker := time.NewTicker(d.cfg.PassInterval)
	defer passTicker.Stop()
	sweepTicker := time.NewTicker(d.cfg.SweepInterval)
	defer sweepTicker.Stop()

	d.log.Info(ctx, "detector started",
		"pass_interval", d.cfg.PassInterval,
		"sweep_interval", d.cfg.SweepInterval,
		"workers", d.cfg.Workers)

	d.pass(ctx)

	for {
		select {
		case <-ctx.Done():
			d.log.Info(ctx, "detector stopping")
			return ctx.Err()
		case <-passTicker.C:
			d.pass(ctx)
		case <-sweepTicker.C:
			d.sweep(ctx)
		}
	}
}

// pass evaluates every product in the book once.
func (d *Detector) pass(ctx context.Context) {
	ctx, span := d.tracer.StartSpanFromContext(ctx, "detection.pass")
	defer span.End()

	now := time.Now().UTC()
	products := d.source.Products()
	span.SetAttributes(attribute.Int("products", len(products)))

	if p, ok := d.source.(Pruner); ok {
		p.Prune(now, d.cfg.FreshnessWindow)
	}

	jobs := make(chan domain.ProductID)
	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for product := range jobs {
				d.evaluate(ctx, product, now)
			}
		}()
	}

	for _, product := range products {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case jobs <- product:
		}
	}
	close(jobs)
	wg.Wait()

	d.passCounter.Add(ctx, 1)
}

// evaluate matches one product and pushes the candidates through the store.
// Events come back out of Apply and are emitted here, with no lock held.
func (d *Detector) evaluate(ctx context.Context, product domain.ProductID, now time.Time) {
	if err := d.limiter.Wait(ctx); err != nil {
		return
	}

	observations := d.source.Product(product)
	candidates, skips := d.matcher.Match(observations, now, d.normalize)

	for _, skip := range skips {
		d.skipCounter.Add(ctx, 1)
		d.log.Warn(ctx, "observation skipped",
			"product", skip.Observation.Product,
			"marketplace", skip.Observation.Marketplace,
			logger.Err(skip.Reason))
	}
	if len(candidates) > 0 {
		d.candidateCounter.Add(ctx, int64(len(candidates)))
	}

	for _, c := range candidates {
		events := d.store.Apply(c, now)
		d.emit(ctx, events)
	}
}

// sweep expires overdue opportunities and emits the resulting events.
func (d *Detector) sweep(ctx context.Context) {
	ctx, span := d.tracer.StartSpanFromContext(ctx, "detection.sweep",
		trace.WithAttributes(attribute.Int("active", d.store.ActiveCount())))
	defer span.End()

	now := time.Now().UTC()
	events := d.store.Sweep(now)
	if len(events) > 0 {
		d.log.Info(ctx, "swept expired opportunities", "count", len(events))
	}
	d.emit(ctx, events)
}

// emit delivers events to the sink. Delivery failures are logged and counted;
// they never roll back the store state the events describe.
func (d *Detector) emit(ctx context.Context, events []domain.Event) {
	for _, event := range events {
		d.eventCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("kind", string(event.Kind))))
		if err := d.sink.Emit(ctx, event); err != nil {
			d.log.Error(ctx, "event emission failed",
				"kind", event.Kind,
				"key", event.Opportunity.Key.String(),
				logger.Err(err))
		}
	}
}
