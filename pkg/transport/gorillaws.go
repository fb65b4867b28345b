package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/tutorwave/realtime-go/pkg/logger"
)

// DefaultDialer is the gorilla dialer used by WS unless one is injected.
// It is the default gorilla dialer with compression enabled.
var DefaultDialer = &gorilla.Dialer{
	Proxy:             gorilla.DefaultDialer.Proxy,
	HandshakeTimeout:  gorilla.DefaultDialer.HandshakeTimeout,
	EnableCompression: true,
}

// closeWriteTimeout bounds how long Close waits for the close frame write
// when the caller's context has no deadline of its own.
const closeWriteTimeout = 5 * time.Second

// WS is the production Transport, a gorilla/websocket connection carrying
// JSON text frames.
type WS struct {
	url    string
	dialer *gorilla.Dialer
	logger logger.Logger

	conn *gorilla.Conn
	// connMu guards conn against concurrent writers. Reads are not guarded:
	// ReadMessage is only ever called from the manager's single read loop.
	connMu sync.Mutex
}

// NewWS returns an unconnected WebSocket transport for the given URL.
// A nil dialer means DefaultDialer, a nil logger discards output.
func NewWS(url string, dialer *gorilla.Dialer, log logger.Logger) *WS {
	if dialer == nil {
		dialer = DefaultDialer
	}
	if log == nil {
		log = logger.Nop()
	}
	return &WS{url: url, dialer: dialer, logger: log}
}

// NewWSFactory returns a Factory producing a fresh WS per connection attempt.
func NewWSFactory(url string, dialer *gorilla.Dialer, log logger.Logger) Factory {
	return func(context.Context) (Transport, error) {
		return NewWS(url, dialer, log), nil
	}
}

func (ws *WS) Connect(ctx context.Context) error {
	conn, res, err := ws.dialer.DialContext(ctx, ws.url, nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	ws.connMu.Lock()
	ws.conn = conn
	ws.connMu.Unlock()

	return nil
}

// ReadMessage returns the next text frame. Closures of any kind, including
// dropped connections without a close frame, are reported as *CloseError so
// the manager can pick a reconnect decision off the code.
func (ws *WS) ReadMessage() ([]byte, error) {
	ws.connMu.Lock()
	conn := ws.conn
	ws.connMu.Unlock()

	if conn == nil {
		return nil, &CloseError{Code: CloseAbnormal, Reason: "not connected"}
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		var ce *gorilla.CloseError
		if errors.As(err, &ce) {
			return nil, &CloseError{Code: ce.Code, Reason: ce.Text}
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, &CloseError{Code: CloseNormal, Reason: "connection closed locally"}
		}
		// Anything else from gorilla means the connection is unusable,
		// but no close frame was seen.
		return nil, &CloseError{Code: CloseAbnormal, Reason: err.Error()}
	}

	return data, nil
}

func (ws *WS) WriteMessage(data []byte) error {
	ws.connMu.Lock()
	defer ws.connMu.Unlock()

	if ws.conn == nil {
		return ErrNotOpen
	}

	return ws.conn.WriteMessage(gorilla.TextMessage, data)
}

// Close sends a close frame with a normal-closure code, then tears down the
// underlying connection. The close frame write is best effort: if it fails
// or the context expires, the connection is closed regardless so that no
// local resources leak.
func (ws *WS) Close(ctx context.Context) error {
	ws.connMu.Lock()
	defer ws.connMu.Unlock()

	conn := ws.conn
	ws.conn = nil
	if conn == nil {
		return nil
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(closeWriteTimeout)
	}

	msg := gorilla.FormatCloseMessage(CloseNormal, "")
	if err := conn.WriteControl(gorilla.CloseMessage, msg, deadline); err != nil {
		ws.logger.Debug("failed to write close frame", "error", err)
	}

	return conn.Close()
}
