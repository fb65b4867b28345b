package connection

import (
	"fmt"
	"time"
)

// State is the connection lifecycle state. There is exactly one State per
// client; transitions are driven only by the Manager.
type State int

const (
	// StateIdle is the initial state before the first Connect call.
	StateIdle State = iota
	// StateConnecting means a dial is in flight, either user-initiated or
	// a scheduled reconnect.
	StateConnecting
	// StateOpen means the transport is established and Send is usable.
	StateOpen
	// StateClosing means a user-requested disconnect is in progress.
	StateClosing
	// StateClosed means the connection is down. Status.Code and
	// Status.Reason say why; a reconnect may be scheduled.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateOpen:
		return "Open"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "InvalidState"
	}
}

func (s State) validateTransitionTo(newState State) error {
	switch s {
	case StateIdle:
		switch newState {
		case StateConnecting, StateClosed:
			return nil
		}
	case StateConnecting:
		switch newState {
		case StateOpen, StateClosing, StateClosed:
			return nil
		}
	case StateOpen:
		switch newState {
		case StateClosing, StateClosed:
			return nil
		}
	case StateClosing:
		if newState == StateClosed {
			return nil
		}
	case StateClosed:
		// Closed to Closed re-labels the close (a user-requested
		// disconnect overriding an abnormal closure).
		switch newState {
		case StateConnecting, StateClosed:
			return nil
		}
	}

	return fmt.Errorf("invalid state transition from %v to %v", s, newState)
}

// Reasons recorded in Status for locally-originated closures.
const (
	ReasonConnectFailed = "connect_failed"
	ReasonUserRequested = "user_requested"
)

// Status is the observable connection state. Code and Reason are meaningful
// only when State is StateClosed.
type Status struct {
	State  State
	Code   int
	Reason string
}

func (s Status) String() string {
	if s.State != StateClosed {
		return s.State.String()
	}
	return fmt.Sprintf("Closed(code=%d, reason=%q)", s.Code, s.Reason)
}

// RetryState describes reconnect progress: how many attempts have been made
// since the connection was last open, the most recent failure, and the delay
// chosen for the pending attempt.
type RetryState struct {
	Count     int
	LastErr   error
	NextDelay time.Duration
}
