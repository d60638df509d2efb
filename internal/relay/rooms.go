package relay

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"messenger-backend/internal/metrics"
)

// Multiplexer maps conversation rooms to their live subscribers and fans
// events out to them. It shares the Registry's index and lock.
type Multiplexer struct {
	reg *Registry
	log zerolog.Logger
}

func NewMultiplexer(reg *Registry, log zerolog.Logger) *Multiplexer {
	return &Multiplexer{reg: reg, log: log}
}

// Join subscribes the connection to a room. Idempotent.
func (m *Multiplexer) Join(roomID string, c *Conn) {
	m.reg.mu.Lock()
	m.reg.joinLocked(roomID, c)
	m.reg.mu.Unlock()
}

// Leave unsubscribes the connection. Leaving a room not joined is a no-op.
func (m *Multiplexer) Leave(roomID string, c *Conn) {
	m.reg.mu.Lock()
	m.reg.leaveLocked(roomID, c)
	m.reg.mu.Unlock()
}

// Broadcast delivers payload to every current subscriber of the room except
// exclude (if non-nil). Delivery is best-effort per connection: one failed
// subscriber never aborts the rest and never surfaces to the caller.
//
// The write lock serializes broadcasts, so every subscriber's FIFO queue
// observes broadcasts to a room in the same relative order. No ordering
// holds across rooms.
func (m *Multiplexer) Broadcast(roomID string, payload any, exclude *Conn) {
	data, err := json.Marshal(payload)
	if err != nil {
		m.log.Error().Err(err).Str("room", roomID).Msg("marshal broadcast payload")
		return
	}

	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()

	for _, c := range m.reg.rooms[roomID] {
		if c == exclude {
			continue
		}
		if c.enqueue(data) {
			metrics.BroadcastDeliveries.Inc()
		} else {
			metrics.DeliveryFailures.Inc()
			m.log.Warn().Str("room", roomID).Str("conn_id", c.id).Msg("dropped broadcast delivery")
		}
	}
}
