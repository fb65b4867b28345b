package realtime

import (
	"errors"

	"github.com/tutorwave/realtime-go/pkg/connection"
)

// ErrNotConnected is returned by [Client.Send] while the connection is not
// open.
var ErrNotConnected = connection.ErrNotConnected

// ErrNoEndpoint is returned by [New] when neither an endpoint URL nor a
// transport factory is configured.
var ErrNoEndpoint = errors.New("realtime: endpoint URL or transport factory required")
