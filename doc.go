// The [realtime] package implements the live-update client for the Tutorwave
// backend: one WebSocket session delivering balance, transaction and
// notification events to the rest of the application.
//
// # Connecting
//
// Build a [Client] with [New], then call [Client.Connect]. Connect returns
// immediately; the dial and any later reconnects happen in the background.
// Readiness is observable through [Client.State] or by subscribing to the
// synthetic lifecycle event types in [github.com/tutorwave/realtime-go/pkg/event].
//
// Lost connections are re-established automatically with capped exponential
// backoff (see [github.com/tutorwave/realtime-go/pkg/backoff]). A
// user-requested [Client.Disconnect] is final until Connect is called again.
//
// # Subscribing
//
// [Client.Subscribe] registers a handler for one event type and returns the
// function that removes it again. Subscriptions survive reconnects; they are
// dropped only by their unsubscribe function or by [Client.Close]. The
// wildcard type "*" receives every event, including lifecycle events and
// frames that failed to parse, and is meant for diagnostics.
//
// # Sending
//
// [Client.Send] writes a single message while the connection is open and
// fails with [ErrNotConnected] otherwise. Messages are never queued across
// reconnects: a stale payment or notification message silently flushed after
// a reconnect would be worse than an error the caller can see.
//
// # Testing
//
// The transport is injected via a factory, so tests substitute an in-memory
// transport without touching global state. See
// [github.com/tutorwave/realtime-go/internal/mock] for the one used by this
// module's own tests.
package realtime
