// Package mock provides a scripted Transport for tests.
//
// The real transport is swapped for this one through the connection
// manager's Factory, so tests never patch global state.
package mock

import (
	"context"
	"sync"

	"github.com/tutorwave/realtime-go/pkg/transport"
)

type frame struct {
	data []byte
	err  error
}

// Transport is an in-memory Transport fed by the test. Frames and read
// errors queued with EmitFrame/EmitError are returned from ReadMessage in
// order; writes are recorded for inspection.
type Transport struct {
	frames chan frame

	mu         sync.Mutex
	connectErr error
	connected  bool
	closed     bool
	writes     [][]byte
}

func NewTransport() *Transport {
	return &Transport{frames: make(chan frame, 2048)}
}

// FailConnect makes the next Connect call return err.
func (t *Transport) FailConnect(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connectErr = err
}

func (t *Transport) Connect(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connectErr != nil {
		return t.connectErr
	}
	t.connected = true
	return nil
}

func (t *Transport) ReadMessage() ([]byte, error) {
	f := <-t.frames
	return f.data, f.err
}

func (t *Transport) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected || t.closed {
		return transport.ErrNotOpen
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	t.writes = append(t.writes, buf)
	return nil
}

func (t *Transport) Close(context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	// Unblock a pending ReadMessage the way a closed socket would.
	t.frames <- frame{err: &transport.CloseError{
		Code:   transport.CloseNormal,
		Reason: "connection closed locally",
	}}
	return nil
}

// EmitFrame queues an inbound frame.
func (t *Transport) EmitFrame(data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)
	t.frames <- frame{data: buf}
}

// EmitError queues a recoverable read error.
func (t *Transport) EmitError(err error) {
	t.frames <- frame{err: err}
}

// CloseFromServer simulates the peer closing the connection with a code.
func (t *Transport) CloseFromServer(code int, reason string) {
	t.frames <- frame{err: &transport.CloseError{Code: code, Reason: reason}}
}

// Writes returns the frames written so far.
func (t *Transport) Writes() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([][]byte, len(t.writes))
	copy(out, t.writes)
	return out
}

// Closed reports whether Close was called.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Factory produces mock Transports and records them so tests can reach the
// instance backing each connection attempt.
type Factory struct {
	mu          sync.Mutex
	transports  []*Transport
	connectErrs []error
}

func NewFactory() *Factory {
	return &Factory{}
}

// FailConnects makes the next n produced transports fail their Connect call
// with err.
func (f *Factory) FailConnects(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		f.connectErrs = append(f.connectErrs, err)
	}
}

// New is the transport.Factory to hand to the connection manager.
func (f *Factory) New(context.Context) (transport.Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := NewTransport()
	if len(f.connectErrs) > 0 {
		t.connectErr = f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
	}
	f.transports = append(f.transports, t)
	return t, nil
}

// Count returns how many transports have been produced.
func (f *Factory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transports)
}

// Transport returns the i-th produced transport, or nil.
func (f *Factory) Transport(i int) *Transport {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.transports) {
		return nil
	}
	return f.transports[i]
}

// Last returns the most recently produced transport, or nil.
func (f *Factory) Last() *Transport {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.transports) == 0 {
		return nil
	}
	return f.transports[len(f.transports)-1]
}
