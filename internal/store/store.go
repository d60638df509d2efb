package store

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"

	"messenger-backend/internal/models"
)

// ConversationStore is the durable backing for conversations, messages and
// the user directory. The relay treats it as the single source of truth; all
// in-memory room state is a rebuildable index on top of it.
type ConversationStore interface {
	Ping(ctx context.Context) error
	Close()

	// Conversation operations. CreateConversation accepts the pair in any
	// order (see NormalizePair) and is atomic against concurrent creation of
	// the same pair: whichever racer loses the insert must still return the
	// surviving row, never a duplicate and never a missing-row error.
	// ListConversations returns freshest activity first.
	CreateConversation(ctx context.Context, userA, userB uuid.UUID) (*models.Conversation, error)
	FindConversationByPair(ctx context.Context, userA, userB uuid.UUID) (*models.Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]models.ConversationView, error)
	TouchConversation(ctx context.Context, id uuid.UUID, at time.Time) error

	// Message operations.
	CreateMessage(ctx context.Context, conversationID, senderID uuid.UUID, text string) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
	AppendReadReceipt(ctx context.Context, messageID, userID uuid.UUID) error

	// User directory. AddContact reports whether a new link was inserted;
	// false means the contact already existed.
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SearchUsers(ctx context.Context, query string, exclude uuid.UUID) ([]models.User, error)
	ListContacts(ctx context.Context, userID uuid.UUID) ([]models.User, error)
	AddContact(ctx context.Context, userID, contactID uuid.UUID) (bool, error)
}

// NormalizePair orders two user ids so an unordered participant pair always
// maps to the same (userA, userB) key.
func NormalizePair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}
