package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"messenger-backend/internal/metrics"
	"messenger-backend/internal/models"
)

// SignalKind identifies an ephemeral presence signal.
type SignalKind string

const (
	SignalTyping      SignalKind = models.EventTyping
	SignalStopTyping  SignalKind = models.EventStopTyping
	SignalMessageRead SignalKind = models.EventMessageRead
)

// ReceiptStore is the one durable dependency of the signal relay: read
// receipts are recorded even when nobody is listening.
type ReceiptStore interface {
	AppendReadReceipt(ctx context.Context, messageID, userID uuid.UUID) error
}

// SignalRelay routes ephemeral events (typing, read receipts) to room
// subscribers, excluding every connection that belongs to the originating
// user. Signals are never persisted; a room with no subscribers swallows
// them silently.
type SignalRelay struct {
	reg   *Registry
	store ReceiptStore
	log   zerolog.Logger
}

func NewSignalRelay(reg *Registry, store ReceiptStore, log zerolog.Logger) *SignalRelay {
	return &SignalRelay{reg: reg, store: store, log: log}
}

// Signal relays kind from origin to the room. messageID is only meaningful
// for read receipts, which additionally append origin to the message's
// durable read set before the live relay: durable-always, relay-best-effort.
func (s *SignalRelay) Signal(ctx context.Context, roomID string, origin uuid.UUID, kind SignalKind, messageID uuid.UUID) error {
	var payload any
	switch kind {
	case SignalTyping, SignalStopTyping:
		payload = models.PresenceEvent{Event: string(kind), UserID: origin}
	case SignalMessageRead:
		if messageID == uuid.Nil {
			return fmt.Errorf("read receipt without message id: %w", models.ErrInvalidInput)
		}
		if err := s.store.AppendReadReceipt(ctx, messageID, origin); err != nil {
			return err
		}
		payload = models.ReadReceiptEvent{Event: string(kind), MessageID: messageID, UserID: origin}
	default:
		return fmt.Errorf("unknown signal kind %q: %w", kind, models.ErrInvalidInput)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("room", roomID).Msg("marshal signal payload")
		return nil
	}

	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()

	delivered := 0
	for _, c := range s.reg.rooms[roomID] {
		if c.authed && c.userID == origin {
			continue
		}
		if c.enqueue(data) {
			delivered++
		} else {
			metrics.DeliveryFailures.Inc()
			s.log.Warn().Str("room", roomID).Str("conn_id", c.id).Msg("dropped signal delivery")
		}
	}
	if delivered > 0 {
		metrics.SignalsRelayed.WithLabelValues(string(kind)).Inc()
	}
	return nil
}
