// Package event defines the inbound and outbound message model of the
// realtime stream.
//
// Frames are JSON text. Every inbound frame carries a "type" discriminant and
// a "timestamp"; the rest is payload specific to the type. Frames with an
// unrecognized type, and frames that fail to parse, are preserved as Generic
// events rather than dropped, so new server-side event types round-trip
// losslessly through old clients.
package event

import (
	"encoding/json"
	"time"
)

// Known event types emitted by the backend.
const (
	TypeBalanceUpdate     = "balance_update"
	TypeTransactionUpdate = "transaction_update"
	TypeNotification      = "notification"
)

// Reserved event types synthesized by the client itself to report connection
// lifecycle through the ordinary subscription surface.
const (
	TypeConnectionOpen   = "connection_open"
	TypeConnectionClosed = "connection_closed"
	TypeConnectionError  = "connection_error"
)

// Kind identifies which payload field of an Event is populated.
type Kind int

const (
	// KindGeneric is the zero value: an event whose type the client does
	// not model. The raw frame is retained in Event.Raw.
	KindGeneric Kind = iota
	KindBalanceUpdate
	KindTransactionUpdate
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindBalanceUpdate:
		return "balance_update"
	case KindTransactionUpdate:
		return "transaction_update"
	case KindNotification:
		return "notification"
	default:
		return "invalid"
	}
}

// BalanceUpdate reports the account's current balance after a change.
type BalanceUpdate struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// TransactionUpdate reports a state change of a purchase or payout.
type TransactionUpdate struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
}

// Notification is a user-facing application notice.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   string `json:"level"`
}

// Event is a decoded inbound frame. Exactly one of the payload pointers is
// non-nil when Kind is not KindGeneric.
type Event struct {
	// Type is the raw discriminant from the frame. It is empty only when
	// the frame could not be parsed at all.
	Type string

	Kind Kind

	// Timestamp is the server-assigned time of the event, used for
	// diagnostics only. Zero when absent or unparsable.
	Timestamp time.Time

	Balance      *BalanceUpdate
	Transaction  *TransactionUpdate
	Notification *Notification

	// Raw is the original frame. Always set for decoded frames so that
	// diagnostics subscribers can inspect what actually arrived.
	Raw json.RawMessage

	// ParseError records why the frame, or its payload, could not be
	// decoded. The event is still delivered as KindGeneric.
	ParseError error
}

// Message is an outbound frame. It is serialized and written only while the
// connection is open; the client never buffers it across reconnects.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type envelope struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// Decode turns a raw frame into an Event. It never fails: malformed JSON and
// payloads that do not match their declared type come back as KindGeneric
// with ParseError set, so the read loop cannot be crashed by a bad frame.
func Decode(data []byte) Event {
	raw := make(json.RawMessage, len(data))
	copy(raw, data)

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{Kind: KindGeneric, Raw: raw, ParseError: err}
	}

	ev := Event{
		Type: env.Type,
		Kind: KindGeneric,
		Raw:  raw,
	}
	if ts, err := time.Parse(time.RFC3339Nano, env.Timestamp); err == nil {
		ev.Timestamp = ts
	}

	switch env.Type {
	case TypeBalanceUpdate:
		var payload BalanceUpdate
		if err := json.Unmarshal(data, &payload); err != nil {
			ev.ParseError = err
			return ev
		}
		ev.Kind = KindBalanceUpdate
		ev.Balance = &payload
	case TypeTransactionUpdate:
		var payload TransactionUpdate
		if err := json.Unmarshal(data, &payload); err != nil {
			ev.ParseError = err
			return ev
		}
		ev.Kind = KindTransactionUpdate
		ev.Transaction = &payload
	case TypeNotification:
		var payload Notification
		if err := json.Unmarshal(data, &payload); err != nil {
			ev.ParseError = err
			return ev
		}
		ev.Kind = KindNotification
		ev.Notification = &payload
	}

	return ev
}
