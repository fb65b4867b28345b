package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tutorwave/realtime-go/pkg/backoff"
	"github.com/tutorwave/realtime-go/pkg/connection"
	"github.com/tutorwave/realtime-go/pkg/dispatch"
	"github.com/tutorwave/realtime-go/pkg/event"
	"github.com/tutorwave/realtime-go/pkg/logger"
	"github.com/tutorwave/realtime-go/pkg/transport"
)

// Config configures a Client. URL is the only required field; everything
// else has working defaults.
type Config struct {
	// URL is the realtime endpoint, e.g. "wss://api.tutorwave.com/realtime".
	URL string

	// TransportFactory overrides the default WebSocket transport. Tests
	// inject their fake here. When set, URL may be empty.
	TransportFactory transport.Factory

	// Backoff is the reconnect schedule. The zero value means 1s base,
	// 30s cap, unlimited attempts, no jitter.
	Backoff backoff.Policy

	// Logger receives diagnostics. Nil discards them.
	Logger logger.Logger
}

// Client is the single entry point to the realtime stream. It composes the
// connection manager, the message dispatcher and the subscription registry;
// none of those are reachable from application code except through it.
type Client struct {
	logger     logger.Logger
	registry   *dispatch.Registry
	dispatcher *dispatch.Dispatcher
	manager    *connection.Manager
}

// New builds a Client. The connection is not dialed until Connect.
func New(cfg Config) (*Client, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	factory := cfg.TransportFactory
	if factory == nil {
		if cfg.URL == "" {
			return nil, ErrNoEndpoint
		}
		factory = transport.NewWSFactory(cfg.URL, nil, log)
	}

	c := &Client{
		logger:   log,
		registry: dispatch.NewRegistry(),
	}
	c.dispatcher = dispatch.NewDispatcher(c.registry, log)
	c.manager = connection.NewManager(connection.Config{
		Factory: factory,
		Backoff: cfg.Backoff,
		Logger:  log,
		OnOpen:  c.handleOpen,
		OnClose: c.handleClose,
		OnError: c.handleError,
		OnFrame: c.dispatcher.DispatchRaw,
	})

	return c, nil
}

// Connect starts the connection. It returns immediately and is a no-op if
// the client is already connecting or connected. Dial failures are not
// returned here; they surface as connection_error/connection_closed events
// and are absorbed by the reconnect loop.
func (c *Client) Connect(ctx context.Context) error {
	return c.manager.Connect(ctx)
}

// Disconnect closes the connection and cancels any pending reconnect.
// Subscriptions are kept, so a later Connect resumes delivery to them.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.manager.Disconnect(ctx)
}

// Close tears the client down: Disconnect plus removal of every
// subscription. After Close no timer is pending and no handler can be
// invoked again. The client may still be reused by subscribing and
// connecting afresh.
func (c *Client) Close(ctx context.Context) error {
	err := c.manager.Disconnect(ctx)
	c.registry.Clear()
	return err
}

// State returns the current connection status.
func (c *Client) State() connection.Status {
	return c.manager.Status()
}

// Retry returns reconnect progress, for surfacing an "offline, retrying"
// indicator.
func (c *Client) Retry() connection.RetryState {
	return c.manager.Retry()
}

// Subscribe registers a handler for an event type (or dispatch.Wildcard)
// and returns the function that removes the subscription. The returned
// function is idempotent.
func (c *Client) Subscribe(eventType string, handler dispatch.Handler) func() {
	id := c.registry.Subscribe(eventType, handler)
	return func() { c.registry.Unsubscribe(id) }
}

// Send serializes and writes one message. It fails with ErrNotConnected
// unless the connection is open; it never buffers.
func (c *Client) Send(msg event.Message) error {
	if c.manager.Status().State != connection.StateOpen {
		return ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("realtime: marshaling message: %w", err)
	}

	return c.manager.Write(data)
}

func (c *Client) handleOpen() {
	c.lifecycleEvent(event.TypeConnectionOpen, map[string]any{})
}

func (c *Client) handleClose(st connection.Status) {
	c.lifecycleEvent(event.TypeConnectionClosed, map[string]any{
		"code":   st.Code,
		"reason": st.Reason,
	})
}

func (c *Client) handleError(err error) {
	c.lifecycleEvent(event.TypeConnectionError, map[string]any{
		"error": err.Error(),
	})
}

// lifecycleEvent reports connection lifecycle through the same dispatch
// path as data events, so consumers await readiness with the ordinary
// Subscribe API instead of a second callback surface.
func (c *Client) lifecycleEvent(eventType string, fields map[string]any) {
	fields["type"] = eventType
	raw, err := json.Marshal(fields)
	if err != nil {
		c.logger.Error("BUG: failed to encode lifecycle event", "error", err)
		raw = nil
	}

	c.dispatcher.Dispatch(event.Event{
		Type:      eventType,
		Kind:      event.KindGeneric,
		Timestamp: time.Now(),
		Raw:       raw,
	})
}
