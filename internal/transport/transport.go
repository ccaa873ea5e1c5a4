// Package transport abstracts the message-oriented connection to the
// Engine. Concrete transports push their events onto a single channel
// consumed by the session's dispatcher loop, so no callback storage or
// cross-thread callback bounds are needed.
package transport

import (
	"context"
	"fmt"
)

// Event is either a connection up/down signal or an inbound message.
type Event interface {
	isEvent()
}

// StateEvent signals the connection coming up or going down. Err is nil
// for a deliberate disconnect and non-nil for a transport-level loss.
type StateEvent struct {
	Up  bool
	Err error
}

func (StateEvent) isEvent() {}

// MessageEvent carries one inbound wire message.
type MessageEvent struct {
	Data []byte
}

func (MessageEvent) isEvent() {}

// Transport is the contract the session client depends on. It makes no
// assumption about single- or multi-threaded execution; the concrete type
// owns its execution model.
type Transport interface {
	// Connect establishes the connection. Idempotent while already
	// connecting or connected.
	Connect(ctx context.Context) error

	// Send transmits one serialized message. Best-effort: a send racing a
	// disconnect may be dropped.
	Send(data []byte) error

	// Disconnect tears the connection down. Idempotent and safe to call
	// from any state.
	Disconnect()

	// Events yields state changes and inbound messages in arrival order.
	Events() <-chan Event
}

// Error wraps a transport-level failure with the operation that caused it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
