package dispatch

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorwave/realtime-go/pkg/event"
)

func TestDispatcher(t *testing.T) {
	t.Run("routes by type", func(t *testing.T) {
		r := NewRegistry()
		var got []string

		r.Subscribe(event.TypeBalanceUpdate, func(ev event.Event) { got = append(got, "balance") })
		r.Subscribe(event.TypeNotification, func(ev event.Event) { got = append(got, "notification") })

		d := NewDispatcher(r, nil)
		d.DispatchRaw([]byte(`{"type":"balance_update","balance":10,"currency":"USD"}`))

		assert.Equal(t, []string{"balance"}, got)
	})

	t.Run("wildcard receives every event", func(t *testing.T) {
		r := NewRegistry()
		var types []string

		r.Subscribe(Wildcard, func(ev event.Event) { types = append(types, ev.Type) })

		d := NewDispatcher(r, nil)
		d.DispatchRaw([]byte(`{"type":"balance_update","balance":1,"currency":"USD"}`))
		d.DispatchRaw([]byte(`{"type":"lesson_reminder"}`))

		assert.Equal(t, []string{"balance_update", "lesson_reminder"}, types)
	})

	t.Run("malformed frame reaches only wildcard, with parse error", func(t *testing.T) {
		r := NewRegistry()
		typedCalls := 0
		var wildcardEv event.Event

		r.Subscribe(event.TypeBalanceUpdate, func(event.Event) { typedCalls++ })
		r.Subscribe(Wildcard, func(ev event.Event) { wildcardEv = ev })

		d := NewDispatcher(r, nil)
		d.DispatchRaw([]byte(`{not json`))

		assert.Equal(t, 0, typedCalls)
		assert.Error(t, wildcardEv.ParseError)
		assert.Equal(t, event.KindGeneric, wildcardEv.Kind)
	})

	t.Run("panicking handler does not stop dispatch", func(t *testing.T) {
		r := NewRegistry()
		var got []string

		r.Subscribe(event.TypeNotification, func(event.Event) { got = append(got, "first") })
		r.Subscribe(event.TypeNotification, func(event.Event) { panic("handler bug") })
		r.Subscribe(event.TypeNotification, func(event.Event) { got = append(got, "third") })

		d := NewDispatcher(r, nil)
		require.NotPanics(t, func() {
			d.Dispatch(event.Event{Type: event.TypeNotification})
		})

		assert.Equal(t, []string{"first", "third"}, got)
	})

	t.Run("handler unsubscribing itself is not re-invoked", func(t *testing.T) {
		r := NewRegistry()
		calls := 0
		var id uuid.UUID
		id = r.Subscribe(event.TypeBalanceUpdate, func(event.Event) {
			calls++
			r.Unsubscribe(id)
		})

		d := NewDispatcher(r, nil)
		d.Dispatch(event.Event{Type: event.TypeBalanceUpdate})
		d.Dispatch(event.Event{Type: event.TypeBalanceUpdate})

		assert.Equal(t, 1, calls)
		assert.Equal(t, 0, r.Len())
	})

	t.Run("handler unsubscribing a later handler suppresses it mid-dispatch", func(t *testing.T) {
		r := NewRegistry()
		var got []string

		var victim uuid.UUID
		r.Subscribe(event.TypeBalanceUpdate, func(event.Event) {
			got = append(got, "first")
			r.Unsubscribe(victim)
		})
		victim = r.Subscribe(event.TypeBalanceUpdate, func(event.Event) {
			got = append(got, "second")
		})

		d := NewDispatcher(r, nil)
		d.Dispatch(event.Event{Type: event.TypeBalanceUpdate})

		assert.Equal(t, []string{"first"}, got)
	})

	t.Run("subscribe then unsubscribe before any event yields zero invocations", func(t *testing.T) {
		r := NewRegistry()
		calls := 0

		id := r.Subscribe(event.TypeTransactionUpdate, func(event.Event) { calls++ })
		r.Unsubscribe(id)

		d := NewDispatcher(r, nil)
		d.DispatchRaw([]byte(`{"type":"transaction_update","transaction_id":"txn_1","amount":5,"status":"pending"}`))

		assert.Equal(t, 0, calls)
	})

	t.Run("subscribing from a handler takes effect for later events only", func(t *testing.T) {
		r := NewRegistry()
		lateCalls := 0

		r.Subscribe(event.TypeBalanceUpdate, func(event.Event) {
			r.Subscribe(event.TypeBalanceUpdate, func(event.Event) { lateCalls++ })
		})

		d := NewDispatcher(r, nil)
		d.Dispatch(event.Event{Type: event.TypeBalanceUpdate})
		assert.Equal(t, 0, lateCalls)

		d.Dispatch(event.Event{Type: event.TypeBalanceUpdate})
		assert.Equal(t, 1, lateCalls)
	})
}
