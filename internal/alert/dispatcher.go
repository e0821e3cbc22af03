package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Dispatcher delivers admitted intents to the configured sinks within a
// bounded timeout. Delivery failures are reported to the caller but still
// advance the cooldown clock; a degraded channel must never be retried in
// a tight loop.
type Dispatcher struct {
	sinks    []Sink
	registry *Registry
	timeout  time.Duration
}

// NewDispatcher creates a dispatcher over the given sinks. The registry is
// marked after every attempt, successful or not.
func NewDispatcher(sinks []Sink, registry *Registry, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		sinks:    sinks,
		registry: registry,
		timeout:  timeout,
	}
}

// Dispatch sends the intent to every sink and returns the joined delivery
// errors, if any. The cooldown window for (camera, kind) is consumed on
// any outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, in *Intent) error {
	defer d.registry.MarkDispatched(in.Camera, in.Kind)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ev := &Event{
		ID:          uuid.NewString(),
		Camera:      in.Camera,
		Kind:        in.Kind,
		Score:       in.Score,
		Description: in.Description,
		Timestamp:   in.At,
	}

	var errs []error
	for _, s := range d.sinks {
		if err := s.Deliver(ctx, ev, in.Photo); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes all sinks.
func (d *Dispatcher) Close(ctx context.Context) {
	for _, s := range d.sinks {
		_ = s.Close(ctx)
	}
}
