package sink

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"

	"github.com/lmoretti/gamearb/business/detection/app"
	"github.com/lmoretti/gamearb/business/detection/domain"
	"github.com/lmoretti/gamearb/internal/apperror"
	"github.com/lmoretti/gamearb/internal/circuitbreaker"
	"github.com/lmoretti/gamearb/internal/logger"
)

// Breaker decorates a sink with a circuit breaker so a dead downstream (Redis
// gone, disk full) sheds load fast instead of stalling every emission on a
// timeout. Dropped events are lost to that sink only; the store state they
// describe is already committed.
type Breaker struct {
	next app.EmissionSink
	cb   *circuitbreaker.CircuitBreaker[struct{}]
}

// NewBreaker wraps next with the default breaker settings.
func NewBreaker(name string, next app.EmissionSink, log logger.LoggerInterface) *Breaker {
	cfg := circuitbreaker.DefaultConfig(name)
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "sink circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	return &Breaker{
		next: next,
		cb:   circuitbreaker.New[struct{}](cfg),
	}
}

func (b *Breaker) Emit(ctx context.Context, event domain.Event) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Emit(ctx, event)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperror.Wrap(err, apperror.CodeCircuitOpen, "sink unavailable")
	}
	return err
}

func (b *Breaker) Close() error {
	return b.next.Close()
}
