package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"messenger-backend/internal/metrics"
	"messenger-backend/internal/models"
	"messenger-backend/internal/relay"
	"messenger-backend/internal/store"
)

// ChatService is the message ingestion pipeline: it validates, persists,
// updates conversation freshness and only then hands the canonical message
// to the multiplexer for fan-out. Nothing unpersisted is ever broadcast.
type ChatService struct {
	store store.ConversationStore
	cache *store.MessageCache // nil when Redis is not configured
	mux   *relay.Multiplexer
	log   zerolog.Logger
}

func NewChatService(st store.ConversationStore, cache *store.MessageCache, mux *relay.Multiplexer, log zerolog.Logger) *ChatService {
	return &ChatService{store: st, cache: cache, mux: mux, log: log}
}

// SendMessage persists a message from sender into the conversation, advances
// the conversation's last activity and broadcasts the persisted result to
// the room. Broadcast failures never roll anything back.
func (s *ChatService) SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty message text: %w", models.ErrInvalidInput)
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, fmt.Errorf("sender is not a participant: %w", models.ErrForbidden)
	}

	msg, err := s.store.CreateMessage(ctx, conversationID, senderID, text)
	if err != nil {
		return nil, err
	}

	// Freshness ordering is advisory; a failed touch must not suppress a
	// message that is already durable.
	if err := s.store.TouchConversation(ctx, conversationID, msg.CreatedAt); err != nil {
		s.log.Warn().Err(err).Str("conversation", conversationID.String()).Msg("touch conversation failed")
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, conversationID)
	}

	s.mux.Broadcast(conv.RoomID(), models.NewMessageEvent{
		Event:   models.EventNewMessage,
		Message: *msg,
	}, nil)

	metrics.MessagesSent.Inc()
	return msg, nil
}

// GetOrCreateConversation resolves the unique conversation for the unordered
// pair (me, recipient), creating it on first contact. Concurrent calls from
// both directions converge on one row.
func (s *ChatService) GetOrCreateConversation(ctx context.Context, me, recipient uuid.UUID) (*models.Conversation, bool, error) {
	if me == recipient {
		return nil, false, fmt.Errorf("cannot start a conversation with yourself: %w", models.ErrInvalidInput)
	}
	if _, err := s.store.GetUserByID(ctx, recipient); err != nil {
		return nil, false, fmt.Errorf("recipient: %w", err)
	}

	if conv, err := s.store.FindConversationByPair(ctx, me, recipient); err == nil {
		return conv, false, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}

	conv, err := s.store.CreateConversation(ctx, me, recipient)
	if err != nil {
		return nil, false, err
	}
	metrics.ConversationsCreated.Inc()
	return conv, true, nil
}

// ListConversations returns the caller's conversations, freshest first.
func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.ConversationView, error) {
	return s.store.ListConversations(ctx, userID)
}

// ListMessages returns a conversation's messages in chronological order. The
// requester must be a participant.
func (s *ChatService) ListMessages(ctx context.Context, conversationID, userID uuid.UUID) ([]models.Message, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, fmt.Errorf("not a participant: %w", models.ErrForbidden)
	}

	if s.cache != nil {
		if messages, ok := s.cache.Get(ctx, conversationID); ok {
			return messages, nil
		}
	}

	messages, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, conversationID, messages)
	}
	return messages, nil
}
