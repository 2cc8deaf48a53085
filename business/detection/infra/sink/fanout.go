package sink

import (
	"context"
	"errors"

	"github.com/lmoretti/gamearb/business/detection/app"
	"github.com/lmoretti/gamearb/business/detection/domain"
)

// Fanout delivers each event to every child sink. One sink failing does not
// stop delivery to the others; the joined error reports them all.
type Fanout struct {
	sinks []app.EmissionSink
}

// NewFanout combines sinks into one.
func NewFanout(sinks ...app.EmissionSink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Emit(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
