package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a durable pairwise message thread. The participant pair is
// stored sorted (UserA < UserB) so the unordered pair maps to exactly one row.
type Conversation struct {
	ID             uuid.UUID `json:"id"`
	UserA          uuid.UUID `json:"-"`
	UserB          uuid.UUID `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"updatedAt"`
}

// RoomID is the identifier of the conversation's live fan-out room.
func (c *Conversation) RoomID() string {
	return c.ID.String()
}

func (c *Conversation) Participants() []uuid.UUID {
	return []uuid.UUID{c.UserA, c.UserB}
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.UserA == userID || c.UserB == userID
}

// Participant is a conversation member expanded with profile fields for
// API responses.
type Participant struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar,omitempty"`
}

// ConversationView is the read-side representation of a conversation with
// its participants expanded. Composition happens in the store query, not by
// the client chasing foreign keys.
type ConversationView struct {
	ID           uuid.UUID     `json:"id"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

type CreateConversationRequest struct {
	RecipientID uuid.UUID `json:"recipientId"`
}
