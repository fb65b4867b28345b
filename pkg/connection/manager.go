// Package connection owns the transport lifecycle: it drives the connection
// state machine, schedules reconnects with exponential backoff, and pumps
// inbound frames to the dispatcher.
//
// The Manager is the sole owner of the Transport. Frames are handed to the
// OnFrame hook synchronously on the read loop, so the next frame is not read
// until the previous one has been fully dispatched; inbound order is
// preserved end to end.
package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tutorwave/realtime-go/pkg/backoff"
	"github.com/tutorwave/realtime-go/pkg/logger"
	"github.com/tutorwave/realtime-go/pkg/transport"
)

// ErrNotConnected is returned by Write while the connection is not open.
// Outbound messages are never buffered across reconnects.
var ErrNotConnected = errors.New("connection: not connected")

// ErrNoFactory is returned by Connect when the Manager has no transport
// factory to dial with.
var ErrNoFactory = errors.New("connection: no transport factory configured")

// Config wires a Manager. All hooks are optional; set ones are invoked
// without holding the Manager's lock, so they may call back into it.
type Config struct {
	// Factory produces a fresh Transport per connection attempt.
	Factory transport.Factory

	// Backoff is the reconnect delay policy. The zero value means the
	// default schedule (1s base, 30s cap, unlimited attempts).
	Backoff backoff.Policy

	Logger logger.Logger

	// OnOpen fires on every transition into StateOpen.
	OnOpen func()

	// OnClose fires on every transition into StateClosed, with the
	// closing Status. Exactly once per transition.
	OnClose func(Status)

	// OnError fires for failures that do not close the connection, and
	// for connect failures that the reconnect loop will absorb.
	OnError func(error)

	// OnFrame receives every inbound frame, in arrival order.
	OnFrame func([]byte)
}

// Manager drives the connection state machine.
type Manager struct {
	cfg Config
	log logger.Logger

	mu     sync.Mutex
	state  State
	code   int
	reason string
	tr     transport.Transport
	retry  RetryState
	timer  *time.Timer

	// gen identifies the current connection session. Every Connect,
	// Disconnect and scheduled retry bumps it; dial results, read loop
	// closures and timer callbacks carrying a stale gen are discarded.
	// This is what keeps a cancelled reconnect timer from producing a
	// stray Connecting transition.
	gen uint64
}

func NewManager(cfg Config) *Manager {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{cfg: cfg, log: log, state: StateIdle}
}

// Connect starts dialing. It is idempotent: while Connecting or Open it is a
// no-op. It returns immediately; readiness is reported through OnOpen.
// Calling Connect from Closed cancels any scheduled reconnect and starts a
// fresh session with the attempt counter reset.
func (m *Manager) Connect(ctx context.Context) error {
	if m.cfg.Factory == nil {
		return ErrNoFactory
	}

	m.mu.Lock()
	switch m.state {
	case StateConnecting, StateOpen:
		m.mu.Unlock()
		return nil
	}

	m.gen++
	gen := m.gen
	m.cancelTimerLocked()
	m.retry = RetryState{}
	m.setStateLocked(StateConnecting, 0, "")
	m.mu.Unlock()

	go m.dial(ctx, gen)
	return nil
}

// Disconnect deterministically moves the connection to
// Closed(user_requested): it cancels any pending reconnect, closes the
// transport if one is up, and emits OnClose. Safe to call repeatedly and
// from any state.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	m.gen++
	m.cancelTimerLocked()

	if m.state == StateClosed && m.reason == ReasonUserRequested {
		m.mu.Unlock()
		return nil
	}

	tr := m.tr
	m.tr = nil
	if tr != nil {
		m.setStateLocked(StateClosing, 0, "")
	}
	m.setStateLocked(StateClosed, transport.CloseNormal, ReasonUserRequested)
	st := m.statusLocked()
	m.mu.Unlock()

	var err error
	if tr != nil {
		err = tr.Close(ctx)
	}
	if m.cfg.OnClose != nil {
		m.cfg.OnClose(st)
	}
	return err
}

// Status returns the current observable state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

// Retry returns the current reconnect progress. Count is zero whenever the
// connection is open.
func (m *Manager) Retry() RetryState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retry
}

// Write sends one frame. It fails with ErrNotConnected unless the state is
// Open; it never queues.
func (m *Manager) Write(data []byte) error {
	m.mu.Lock()
	tr := m.tr
	open := m.state == StateOpen
	m.mu.Unlock()

	if !open || tr == nil {
		return ErrNotConnected
	}
	return tr.WriteMessage(data)
}

func (m *Manager) dial(ctx context.Context, gen uint64) {
	tr, err := m.cfg.Factory(ctx)
	if err == nil {
		err = tr.Connect(ctx)
	}

	m.mu.Lock()
	if m.gen != gen || m.state != StateConnecting {
		m.mu.Unlock()
		// A Disconnect or a newer Connect superseded this dial.
		if err == nil && tr != nil {
			_ = tr.Close(context.Background())
		}
		return
	}

	if err != nil {
		m.log.Error("connect failed", "error", err)
		m.retry.LastErr = err
		m.setStateLocked(StateClosed, transport.CloseAbnormal, ReasonConnectFailed)
		st := m.statusLocked()
		delay, retrying := m.prepareReconnectLocked()
		m.mu.Unlock()

		if m.cfg.OnError != nil {
			m.cfg.OnError(err)
		}
		if m.cfg.OnClose != nil {
			m.cfg.OnClose(st)
		}
		if retrying {
			m.armReconnect(gen, delay)
		}
		return
	}

	m.tr = tr
	m.retry = RetryState{}
	m.setStateLocked(StateOpen, 0, "")
	m.mu.Unlock()

	m.log.Debug("connection open")
	if m.cfg.OnOpen != nil {
		m.cfg.OnOpen()
	}

	go m.readLoop(tr, gen)
}

func (m *Manager) readLoop(tr transport.Transport, gen uint64) {
	for {
		data, err := tr.ReadMessage()
		if err != nil {
			var ce *transport.CloseError
			if errors.As(err, &ce) {
				m.handleClosed(gen, ce)
				return
			}
			if !m.sessionAlive(gen) {
				return
			}
			// Recoverable noise: report, keep reading.
			m.log.Warn("transport error", "error", err)
			if m.cfg.OnError != nil {
				m.cfg.OnError(err)
			}
			continue
		}

		// Frames from a superseded session must not outlive its close.
		if !m.sessionAlive(gen) {
			return
		}
		if m.cfg.OnFrame != nil {
			m.cfg.OnFrame(data)
		}
	}
}

// sessionAlive reports whether gen still identifies the current session.
// Connect and Disconnect both bump the generation, fencing off read loops
// that belong to an earlier transport.
func (m *Manager) sessionAlive(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}

func (m *Manager) handleClosed(gen uint64, ce *transport.CloseError) {
	m.mu.Lock()
	if m.gen != gen || m.state == StateClosed {
		// A Disconnect or newer Connect already accounted for this
		// closure.
		m.mu.Unlock()
		return
	}

	m.tr = nil
	reason := ce.Reason
	if reason == "" {
		reason = "connection closed"
	}
	m.setStateLocked(StateClosed, ce.Code, reason)
	st := m.statusLocked()
	var delay time.Duration
	var retrying bool
	if transport.Retryable(ce.Code) {
		m.retry.LastErr = ce
		delay, retrying = m.prepareReconnectLocked()
	}
	m.mu.Unlock()

	m.log.Info("connection closed", "code", ce.Code, "reason", reason)
	if m.cfg.OnClose != nil {
		m.cfg.OnClose(st)
	}
	if retrying {
		m.armReconnect(gen, delay)
	}
}

// prepareReconnectLocked advances the retry counter and picks the next delay.
// The timer itself is armed by armReconnect only after OnClose has run, so a
// very short delay cannot reopen the connection before the close is reported.
func (m *Manager) prepareReconnectLocked() (time.Duration, bool) {
	next := m.retry.Count + 1
	delay, ok := m.cfg.Backoff.NextDelay(next)
	if !ok {
		m.log.Warn("giving up on reconnection", "attempts", m.retry.Count)
		m.retry.NextDelay = 0
		return 0, false
	}

	m.retry.Count = next
	m.retry.NextDelay = delay
	m.log.Info("reconnect scheduled", "attempt", next, "delay", delay)
	return delay, true
}

// armReconnect starts the reconnect timer unless the session was superseded
// while callbacks were running. Only one schedule is ever outstanding: it is
// keyed to the session gen, and Disconnect/Connect both bump the gen and stop
// the timer.
func (m *Manager) armReconnect(gen uint64, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || m.state != StateClosed {
		return
	}
	m.timer = time.AfterFunc(delay, func() { m.reconnect(gen) })
}

func (m *Manager) reconnect(gen uint64) {
	m.mu.Lock()
	if m.gen != gen || m.state != StateClosed {
		m.mu.Unlock()
		return
	}

	m.timer = nil
	m.gen++
	dialGen := m.gen
	m.setStateLocked(StateConnecting, 0, "")
	m.mu.Unlock()

	m.log.Debug("attempting reconnect", "attempt", m.Retry().Count)
	m.dial(context.Background(), dialGen)
}

func (m *Manager) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) setStateLocked(state State, code int, reason string) {
	if err := m.state.validateTransitionTo(state); err != nil {
		m.log.Error("BUG: invalid connection state transition", "error", err)
	}
	m.state = state
	m.code = code
	m.reason = reason
	m.log.Debug("connection state transitioned", "new_state", state)
}

func (m *Manager) statusLocked() Status {
	return Status{State: m.state, Code: m.code, Reason: m.reason}
}
