package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agrosense/fieldalert/internal/observability"
)

// Dispatcher fans events out to the handlers registered for their kind. The
// registry is built once at construction and immutable afterwards, so the
// full handler set is visible in the wiring code.
type Dispatcher struct {
	handlers map[Kind][]Handler
	log      *slog.Logger
	metrics  *observability.Metrics
}

// NewDispatcher registers handlers in the order given; that order decides
// which failure Dispatch reports when several handlers fail on one event.
func NewDispatcher(log *slog.Logger, metrics *observability.Metrics, handlers ...Handler) *Dispatcher {
	byKind := make(map[Kind][]Handler, len(handlers))
	for _, h := range handlers {
		byKind[h.Kind()] = append(byKind[h.Kind()], h)
	}
	return &Dispatcher{handlers: byKind, log: log, metrics: metrics}
}

// Dispatch runs every handler registered for each event's kind. Handlers for
// one event run concurrently and all of them finish before the outcome is
// inspected, so one failing handler never starves its siblings. The first
// failure in registration order is returned and later events in the batch are
// not dispatched. An empty batch or an event nobody handles is a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, events ...Event) error {
	for _, ev := range events {
		if ev == nil {
			continue
		}
		matched := d.handlers[ev.Kind()]
		if len(matched) == 0 {
			continue
		}

		errs := make([]error, len(matched))
		var wg sync.WaitGroup
		for i, h := range matched {
			wg.Add(1)
			go func(i int, h Handler) {
				defer wg.Done()
				start := time.Now()
				err := h.Handle(ctx, ev)
				d.metrics.HandlerDuration.WithLabelValues(h.Name()).Observe(time.Since(start).Seconds())
				if err != nil {
					d.metrics.DispatchFailures.WithLabelValues(h.Name()).Inc()
					d.log.Error("handler failed", "handler", h.Name(), "kind", string(ev.Kind()), "error", err)
					errs[i] = fmt.Errorf("%s: %w", h.Name(), err)
				}
			}(i, h)
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				return err
			}
		}
	}
	return nil
}
