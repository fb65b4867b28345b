// Package dispatch routes decoded events to subscribers.
//
// The Registry maps event types to ordered handler lists and supports O(1)
// unsubscribe by id. The Dispatcher iterates over a snapshot of the matching
// handlers so that subscribe and unsubscribe calls, including ones made from
// inside a handler, are safe while a dispatch is in flight.
package dispatch

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tutorwave/realtime-go/pkg/event"
)

// Wildcard subscriptions receive every event regardless of type, including
// the client's synthetic lifecycle events. Intended for diagnostics.
const Wildcard = "*"

// Handler consumes a single event. Handlers run synchronously on the
// dispatch goroutine, so they must not block for long.
type Handler func(event.Event)

type subscription struct {
	id        uuid.UUID
	eventType string
	seq       uint64
	handler   Handler

	// active is guarded by the registry mutex. A subscription that is
	// removed mid-dispatch stays in the snapshot but is skipped.
	active bool
}

// Registry tracks active subscriptions per event type.
type Registry struct {
	mu     sync.RWMutex
	seq    uint64
	byType map[string][]*subscription
	byID   map[uuid.UUID]*subscription
}

func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[string][]*subscription),
		byID:   make(map[uuid.UUID]*subscription),
	}
}

// Subscribe registers a handler for an event type and returns its id.
// Registering the same handler twice creates two independent subscriptions.
func (r *Registry) Subscribe(eventType string, h Handler) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	s := &subscription{
		id:        uuid.New(),
		eventType: eventType,
		seq:       r.seq,
		handler:   h,
		active:    true,
	}
	r.byType[eventType] = append(r.byType[eventType], s)
	r.byID[s.id] = s

	return s.id
}

// Unsubscribe removes a subscription. Unknown or already-removed ids are a
// no-op.
func (r *Registry) Unsubscribe(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return
	}

	s.active = false
	delete(r.byID, id)

	subs := r.byType[s.eventType]
	for i, candidate := range subs {
		if candidate.id == id {
			r.byType[s.eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(r.byType[s.eventType]) == 0 {
		delete(r.byType, s.eventType)
	}
}

// Clear removes every subscription. The registry remains usable; a component
// that re-mounts can subscribe again afterward.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.byID {
		s.active = false
		delete(r.byID, id)
	}
	r.byType = make(map[string][]*subscription)
}

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}

// snapshot returns the subscriptions matching eventType plus the wildcard
// ones, in registration order across both lists.
func (r *Registry) snapshot(eventType string) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var subs []*subscription
	if eventType != Wildcard {
		subs = append(subs, r.byType[eventType]...)
	}
	subs = append(subs, r.byType[Wildcard]...)

	sort.Slice(subs, func(i, j int) bool { return subs[i].seq < subs[j].seq })

	return subs
}

func (r *Registry) stillActive(s *subscription) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return s.active
}
