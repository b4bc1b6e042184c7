package net

import "errors"

// ErrDisconnected is returned by Send while the channel has no connection.
var ErrDisconnected = errors.New("channel disconnected")

// ConnState is the observable connection state of a Channel.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Channel is the duplex broadcast link between participants. Convergence
// requires the far end to deliver every message to every participant in one
// total order; the Relay in this package does that.
type Channel interface {
	// Send broadcasts m without waiting for delivery. It fails fast with
	// ErrDisconnected when there is no connection; nothing is queued.
	Send(m Message) error
	// OnReceive installs the handler for inbound messages. Malformed
	// payloads are dropped before reaching it.
	OnReceive(fn func(Message))
	// OnStateChange installs the handler for connection state transitions.
	OnStateChange(fn func(ConnState))
	State() ConnState
	Close() error
}
