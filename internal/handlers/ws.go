package handlers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"messenger-backend/internal/models"
	"messenger-backend/internal/relay"
)

// WSUpgradeMiddleware rejects plain HTTP requests on the WebSocket route.
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// WebSocketHandler owns one connection's lifecycle: register, attach the
// authenticated identity, run the write pump, dispatch inbound events, and
// deregister exactly once on any exit path.
func WebSocketHandler(reg *relay.Registry, mux *relay.Multiplexer, signals *relay.SignalRelay, log zerolog.Logger) fiber.Handler {
	return websocket.New(func(sock *websocket.Conn) {
		userID := sock.Locals("user_id").(uuid.UUID)

		conn := reg.Register()
		defer reg.Deregister(conn)
		defer sock.Close()

		if err := reg.AttachIdentity(conn, userID); err != nil {
			log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("identity attach failed")
			return
		}

		// Write pump: the relay only ever touches the send queue, the
		// socket is written from this one goroutine.
		go func() {
			for payload := range conn.Outbound() {
				if err := sock.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			}
			_ = sock.WriteMessage(websocket.CloseMessage, []byte{})
		}()

		reg.Send(conn, map[string]string{
			"event":        models.EventConnected,
			"connectionId": conn.ID(),
		})

		for {
			msgType, raw, err := sock.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("connection read failed")
				}
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			dispatchEvent(conn, userID, raw, reg, mux, signals, log)
		}
	})
}

// dispatchEvent handles one inbound frame. Malformed events are dropped with
// a warning and an error frame; the connection stays open.
func dispatchEvent(conn *relay.Conn, userID uuid.UUID, raw []byte, reg *relay.Registry, mux *relay.Multiplexer, signals *relay.SignalRelay, log zerolog.Logger) {
	var event models.WSEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("malformed inbound event")
		reg.Send(conn, models.ErrorEvent{Event: models.EventError, Reason: "malformed event"})
		return
	}

	switch event.Event {
	case models.EventJoin:
		if event.ConversationID == "" {
			reg.Send(conn, models.ErrorEvent{Event: models.EventError, Reason: "conversationId required"})
			return
		}
		mux.Join(event.ConversationID, conn)

	case models.EventLeave:
		if event.ConversationID == "" {
			return
		}
		mux.Leave(event.ConversationID, conn)

	case models.EventTyping, models.EventStopTyping:
		if event.ConversationID == "" {
			return
		}
		_ = signals.Signal(context.Background(), event.ConversationID, userID, relay.SignalKind(event.Event), uuid.Nil)

	case models.EventMessageRead:
		if event.ConversationID == "" || event.MessageID == uuid.Nil {
			reg.Send(conn, models.ErrorEvent{Event: models.EventError, Reason: "conversationId and messageId required"})
			return
		}
		if err := signals.Signal(context.Background(), event.ConversationID, userID, relay.SignalMessageRead, event.MessageID); err != nil {
			log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("read receipt failed")
			reg.Send(conn, models.ErrorEvent{Event: models.EventError, Reason: "read receipt failed"})
		}

	default:
		log.Warn().Str("conn_id", conn.ID()).Str("event", event.Event).Msg("unknown event")
		reg.Send(conn, models.ErrorEvent{Event: models.EventError, Reason: "unknown event"})
	}
}
