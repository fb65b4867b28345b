package dispatch

import (
	"github.com/tutorwave/realtime-go/pkg/event"
	"github.com/tutorwave/realtime-go/pkg/logger"
)

// Dispatcher decodes inbound frames and delivers the resulting events to
// matching subscriptions.
type Dispatcher struct {
	registry *Registry
	logger   logger.Logger
}

func NewDispatcher(registry *Registry, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{registry: registry, logger: log}
}

// DispatchRaw decodes a frame and dispatches it. It never fails: malformed
// frames are delivered as generic events with ParseError set, observable by
// wildcard subscribers.
func (d *Dispatcher) DispatchRaw(data []byte) {
	ev := event.Decode(data)
	if ev.ParseError != nil {
		d.logger.Warn("received malformed frame",
			"event_type", ev.Type,
			"error", ev.ParseError,
		)
	}
	d.Dispatch(ev)
}

// Dispatch delivers an event to every subscription registered for its type,
// then to wildcard subscriptions, in registration order. A handler that
// panics is logged and skipped; the remaining handlers still run. Handlers
// removed after the snapshot was taken, including by a handler unsubscribing
// itself, are not invoked.
func (d *Dispatcher) Dispatch(ev event.Event) {
	for _, s := range d.registry.snapshot(ev.Type) {
		if !d.registry.stillActive(s) {
			continue
		}
		d.invoke(s, ev)
	}
}

func (d *Dispatcher) invoke(s *subscription, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				"event_type", ev.Type,
				"subscription_id", s.id,
				"panic", r,
			)
		}
	}()

	s.handler(ev)
}
