package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"messenger-backend/internal/models"
)

const messageCacheTTL = 5 * time.Minute

// MessageCache is a read-through Redis cache for a conversation's message
// list. It is strictly an optimization: every miss or Redis failure falls
// back to the durable store, and writes invalidate the cached list.
type MessageCache struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewMessageCache(ctx context.Context, redisURL string, log zerolog.Logger) (*MessageCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &MessageCache{client: client, log: log}, nil
}

func (c *MessageCache) Close() {
	_ = c.client.Close()
}

func messagesKey(conversationID uuid.UUID) string {
	return "messages:" + conversationID.String()
}

// Get returns the cached message list, or ok=false on a miss or any Redis
// error.
func (c *MessageCache) Get(ctx context.Context, conversationID uuid.UUID) ([]models.Message, bool) {
	data, err := c.client.Get(ctx, messagesKey(conversationID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Msg("message cache read failed")
		}
		return nil, false
	}
	var messages []models.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		c.log.Warn().Err(err).Msg("message cache decode failed")
		return nil, false
	}
	return messages, true
}

func (c *MessageCache) Set(ctx context.Context, conversationID uuid.UUID, messages []models.Message) {
	data, err := json.Marshal(messages)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, messagesKey(conversationID), data, messageCacheTTL).Err(); err != nil {
		c.log.Warn().Err(err).Msg("message cache write failed")
	}
}

// Invalidate drops the cached list after a write to the conversation.
func (c *MessageCache) Invalidate(ctx context.Context, conversationID uuid.UUID) {
	if err := c.client.Del(ctx, messagesKey(conversationID)).Err(); err != nil {
		c.log.Warn().Err(err).Msg("message cache invalidation failed")
	}
}
