// Package conn models the lifecycle of the Engine connection independent
// of any concrete transport.
package conn

import (
	"errors"
	"fmt"
	"sync"
)

// State is the connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrNotConnected is returned by send paths when the connection is not in
// the Connected state. The caller decides whether to retry or surface it.
var ErrNotConnected = errors.New("not connected to engine")

// ErrInvalidTransition is returned when a transition is not allowed from
// the current state.
var ErrInvalidTransition = errors.New("invalid connection state transition")

// transitions lists the allowed state changes. Disconnect (to Disconnected)
// is always allowed and handled separately.
var transitions = map[State][]State{
	Disconnected: {Connecting},
	Connecting:   {Connected, Failed},
	Connected:    {Reconnecting},
	Reconnecting: {Connected, Failed},
	Failed:       {Connecting},
}

// Subscriber receives state change notifications.
type Subscriber func(State)

// Tracker validates and applies connection state transitions and notifies
// subscribers exactly once per transition, synchronously with respect to
// the transition. There is no terminal state: Failed recovers via connect.
type Tracker struct {
	mu          sync.Mutex
	state       State
	subscribers []Subscriber
}

// NewTracker returns a tracker in the Disconnected state.
func NewTracker() *Tracker {
	return &Tracker{state: Disconnected}
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Subscribe registers a subscriber for subsequent transitions.
func (t *Tracker) Subscribe(fn Subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers = append(t.subscribers, fn)
}

// Transition moves to the target state if the transition is allowed.
func (t *Tracker) Transition(to State) error {
	t.mu.Lock()
	from := t.state
	if !allowed(from, to) {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	t.state = to
	subs := make([]Subscriber, len(t.subscribers))
	copy(subs, t.subscribers)
	t.mu.Unlock()

	for _, fn := range subs {
		fn(to)
	}
	return nil
}

// ForceDisconnect moves to Disconnected from any state. Safe to call
// regardless of in-flight operations; a no-op when already disconnected.
func (t *Tracker) ForceDisconnect() {
	t.mu.Lock()
	if t.state == Disconnected {
		t.mu.Unlock()
		return
	}
	t.state = Disconnected
	subs := make([]Subscriber, len(t.subscribers))
	copy(subs, t.subscribers)
	t.mu.Unlock()

	for _, fn := range subs {
		fn(Disconnected)
	}
}

func allowed(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
