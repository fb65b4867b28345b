// Package transport abstracts the duplex message stream under the realtime
// client.
//
// The connection manager is the only owner of a Transport; consumers never
// see one. Tests substitute a fake by injecting a Factory, so no global
// state needs to be patched.
package transport

import (
	"context"
	"errors"
	"fmt"
)

// Well-known WebSocket close codes the client interprets.
const (
	// CloseNormal is sent on user-requested disconnects and never retried.
	CloseNormal = 1000
	// CloseAbnormal is the code reported when the connection dropped
	// without a close frame.
	CloseAbnormal = 1006
	// CloseInternalErr is sent by the server on unexpected conditions.
	CloseInternalErr = 1011
	// CloseServiceRestart is sent by the server before a restart.
	CloseServiceRestart = 1012
)

// ErrNotOpen is returned by WriteMessage when the transport has no live
// connection.
var ErrNotOpen = errors.New("transport: not open")

// Transport is a single duplex message stream. Implementations must allow
// WriteMessage and Close to be called concurrently with a blocked
// ReadMessage.
type Transport interface {
	// Connect establishes the underlying connection. It is called at most
	// once per Transport instance; reconnects use a fresh instance from
	// the Factory.
	Connect(ctx context.Context) error

	// ReadMessage blocks until the next inbound frame arrives. When the
	// connection is gone it returns an error wrapping *CloseError; any
	// other error is recoverable protocol noise and reading may continue.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one outbound frame.
	WriteMessage(data []byte) error

	// Close tears the connection down, notifying the peer when possible.
	Close(ctx context.Context) error
}

// Factory creates a fresh Transport for each connection attempt.
type Factory func(ctx context.Context) (Transport, error)

// CloseError reports that the connection closed, and with which code.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("transport: connection closed: code %d: %s", e.Code, e.Reason)
}

// Retryable reports whether a closure with the given code is eligible for
// automatic reconnection. Only a normal closure is final; everything else,
// including abnormal drops and service restarts, is retried.
func Retryable(code int) bool {
	return code != CloseNormal
}
