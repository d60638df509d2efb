package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is immutable once created. ReadBy is the set of users who have
// acknowledged the message; membership only, insertion order irrelevant.
type Message struct {
	ID             uuid.UUID   `json:"id"`
	ConversationID uuid.UUID   `json:"conversationId"`
	SenderID       uuid.UUID   `json:"sender"`
	Text           string      `json:"text"`
	ReadBy         []uuid.UUID `json:"readBy"`
	CreatedAt      time.Time   `json:"createdAt"`
}

type SendMessageRequest struct {
	ConversationID uuid.UUID `json:"conversationId"`
	Text           string    `json:"text"`
}
