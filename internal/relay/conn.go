package relay

import (
	"github.com/google/uuid"
)

// Conn is one live bidirectional client channel. Outbound events are handed
// to a buffered send queue; the transport layer drains it with its own write
// pump, so a slow socket never blocks a broadcaster.
//
// All mutable fields are guarded by the owning Registry's mutex.
type Conn struct {
	id string

	userID uuid.UUID
	authed bool

	rooms  map[string]struct{}
	send   chan []byte
	closed bool
}

// ID returns the unique connection identifier assigned at registration.
func (c *Conn) ID() string {
	return c.id
}

// Outbound is the queue of serialized events to write to the client. It is
// closed exactly once, when the connection is deregistered.
func (c *Conn) Outbound() <-chan []byte {
	return c.send
}

// enqueue attempts a non-blocking delivery. Callers must hold the Registry
// lock (read or write): the closed flag is only ever set under the write
// lock, so the channel cannot be closed mid-send.
func (c *Conn) enqueue(payload []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}
