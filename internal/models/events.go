package models

import "github.com/google/uuid"

// WebSocket event names. Inbound events are sent by clients, outbound events
// are fanned out to room subscribers.
const (
	EventJoin        = "join"
	EventLeave       = "leave"
	EventTyping      = "typing"
	EventStopTyping  = "stopTyping"
	EventMessageRead = "messageRead"
	EventNewMessage  = "newMessage"
	EventConnected   = "connected"
	EventError       = "error"
)

// WSEvent is the inbound event envelope, discriminated by Event.
type WSEvent struct {
	Event          string    `json:"event"`
	ConversationID string    `json:"conversationId,omitempty"`
	MessageID      uuid.UUID `json:"messageId,omitempty"`
}

// NewMessageEvent is broadcast to a room after a message is persisted. The
// field set is the canonical persisted representation, never a raw storage
// record.
type NewMessageEvent struct {
	Event   string  `json:"event"`
	Message Message `json:"message"`
}

// PresenceEvent carries typing / stopTyping relays.
type PresenceEvent struct {
	Event  string    `json:"event"`
	UserID uuid.UUID `json:"userId"`
}

// ReadReceiptEvent relays a read acknowledgment to room subscribers.
type ReadReceiptEvent struct {
	Event     string    `json:"event"`
	MessageID uuid.UUID `json:"messageId"`
	UserID    uuid.UUID `json:"userId"`
}

// ErrorEvent reports a rejected inbound event without closing the connection.
type ErrorEvent struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}
