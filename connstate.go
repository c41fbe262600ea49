package modbus

import (
	"fmt"
	"sync"
)

// ConnState is one of the four lifecycle states a Client's underlying transport connection can be in.
type ConnState uint8

const (
	// StateDisconnected is the initial state, and the state reached after any teardown path.
	StateDisconnected ConnState = iota
	// StateConnecting is entered on Connect() and left once the socket is established or fails.
	StateConnecting
	// StateConnected is entered once the socket is established and requests can be submitted.
	StateConnected
	// StateDisconnecting is entered on an explicit Close() while requests may still be in flight.
	StateDisconnecting
)

// String implements fmt.Stringer.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("ConnState(%d)", uint8(s))
	}
}

// ErrInvalidStateTransition is returned by connState.transition when the requested move is not
// one of the transitions allowed by the connection state machine.
var ErrInvalidStateTransition = fmt.Errorf("modbus: invalid connection state transition")

// connState is the small synchronized state machine backing Client/SerialClient connection
// lifecycle. It does not itself own the socket; callers drive transitions around their dial/close
// code and consult Get() before submitting requests.
type connState struct {
	mu      sync.Mutex
	current ConnState
}

func newConnState() *connState {
	return &connState{current: StateDisconnected}
}

// Get returns the current state.
func (c *connState) Get() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// allowedTransitions enumerates every (from, to) pair the state machine permits, per the
// connection lifecycle: Disconnected -> Connecting -> Connected -> Disconnecting -> Disconnected,
// with the two extra edges for connect failure and for connection loss skipping Disconnecting.
var allowedTransitions = map[ConnState]map[ConnState]bool{
	StateDisconnected:  {StateConnecting: true},
	StateConnecting:    {StateConnected: true, StateDisconnected: true},
	StateConnected:     {StateDisconnecting: true, StateDisconnected: true},
	StateDisconnecting: {StateDisconnected: true},
}

// transition attempts to move from the current state to next, failing with
// ErrInvalidStateTransition if that edge is not in the allowed set.
func (c *connState) transition(next ConnState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !allowedTransitions[c.current][next] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, c.current, next)
	}
	c.current = next
	return nil
}

// requireConnected returns ErrClientNotConnected unless the state machine is currently Connected.
func (c *connState) requireConnected() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != StateConnected {
		return ErrClientNotConnected
	}
	return nil
}
