package relay

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"messenger-backend/internal/metrics"
	"messenger-backend/internal/models"
)

// Registry owns every live connection and the room membership index. The
// per-connection room set and the per-room subscriber set are two sides of
// one bidirectional index guarded by a single mutex; they are mutated
// together and can never diverge.
//
// The whole structure is ephemeral: a restart drops it and clients rejoin
// their rooms on reconnect.
type Registry struct {
	mu sync.RWMutex

	conns map[string]*Conn
	// roomID -> connID -> conn
	rooms map[string]map[string]*Conn

	queueSize int
	log       zerolog.Logger
}

func NewRegistry(queueSize int, log zerolog.Logger) *Registry {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Registry{
		conns:     make(map[string]*Conn),
		rooms:     make(map[string]map[string]*Conn),
		queueSize: queueSize,
		log:       log,
	}
}

// Register admits a new connection and assigns it a unique identifier.
// Each physical connection registers exactly once.
func (r *Registry) Register() *Conn {
	c := &Conn{
		id:    uuid.NewString(),
		rooms: make(map[string]struct{}),
		send:  make(chan []byte, r.queueSize),
	}

	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()

	metrics.ConnectionsActive.Inc()
	r.log.Debug().Str("conn_id", c.id).Msg("connection registered")
	return c
}

// AttachIdentity binds an authenticated user to the connection. Rebinding
// the same identity is a no-op (reconnect); a conflicting identity fails.
func (r *Registry) AttachIdentity(c *Conn, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.authed && c.userID != userID {
		return models.ErrUnauthenticated
	}
	c.userID = userID
	c.authed = true
	return nil
}

// Deregister removes the connection from every room it had joined, closes
// its send queue and drops it from the registry. Safe against a second call.
func (r *Registry) Deregister(c *Conn) {
	r.mu.Lock()
	if c.closed {
		r.mu.Unlock()
		return
	}
	c.closed = true

	for roomID := range c.rooms {
		r.leaveLocked(roomID, c)
	}
	delete(r.conns, c.id)
	close(c.send)
	r.mu.Unlock()

	metrics.ConnectionsActive.Dec()
	r.log.Debug().Str("conn_id", c.id).Msg("connection deregistered")
}

// RoomsOf returns the rooms the connection is currently subscribed to.
func (r *Registry) RoomsOf(c *Conn) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// Subscribers returns the connection ids currently joined to a room.
func (r *Registry) Subscribers(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.rooms[roomID]))
	for id := range r.rooms[roomID] {
		ids = append(ids, id)
	}
	return ids
}

// ConnectionsOf returns every live connection bound to the user's identity.
// A user with two open tabs has two entries.
func (r *Registry) ConnectionsOf(userID uuid.UUID) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conns []*Conn
	for _, c := range r.conns {
		if c.authed && c.userID == userID {
			conns = append(conns, c)
		}
	}
	return conns
}

// IsUserOnline reports whether any live connection carries the identity.
func (r *Registry) IsUserOnline(userID uuid.UUID) bool {
	return len(r.ConnectionsOf(userID)) > 0
}

// Send enqueues a payload for a single connection, outside any room. Used
// for greetings and per-connection error frames. Best-effort.
func (r *Registry) Send(c *Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Error().Err(err).Msg("marshal outbound payload")
		return
	}

	r.mu.RLock()
	ok := c.enqueue(data)
	r.mu.RUnlock()

	if !ok {
		metrics.DeliveryFailures.Inc()
		r.log.Warn().Str("conn_id", c.id).Msg("dropped direct send")
	}
}

// leaveLocked unlinks both sides of the index. Caller holds the write lock.
func (r *Registry) leaveLocked(roomID string, c *Conn) {
	delete(c.rooms, roomID)
	if subs, ok := r.rooms[roomID]; ok {
		delete(subs, c.id)
		if len(subs) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

// joinLocked links both sides of the index. Caller holds the write lock.
func (r *Registry) joinLocked(roomID string, c *Conn) {
	if c.closed {
		return
	}
	c.rooms[roomID] = struct{}{}
	subs, ok := r.rooms[roomID]
	if !ok {
		subs = make(map[string]*Conn)
		r.rooms[roomID] = subs
	}
	subs[c.id] = c
}
