package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-backend/internal/models"
	"messenger-backend/internal/relay"
)

type wsRig struct {
	reg     *relay.Registry
	mux     *relay.Multiplexer
	signals *relay.SignalRelay
}

type nopReceiptStore struct{}

func (nopReceiptStore) AppendReadReceipt(_ context.Context, _, _ uuid.UUID) error { return nil }

func newWSRig() *wsRig {
	reg := relay.NewRegistry(16, zerolog.Nop())
	return &wsRig{
		reg:     reg,
		mux:     relay.NewMultiplexer(reg, zerolog.Nop()),
		signals: relay.NewSignalRelay(reg, nopReceiptStore{}, zerolog.Nop()),
	}
}

func (r *wsRig) dispatch(conn *relay.Conn, userID uuid.UUID, raw string) {
	dispatchEvent(conn, userID, []byte(raw), r.reg, r.mux, r.signals, zerolog.Nop())
}

func drainRaw(c *relay.Conn) [][]byte {
	var out [][]byte
	for {
		select {
		case payload := <-c.Outbound():
			out = append(out, payload)
		default:
			return out
		}
	}
}

func TestDispatchJoinLeave(t *testing.T) {
	rig := newWSRig()
	userID := uuid.New()

	conn := rig.reg.Register()
	require.NoError(t, rig.reg.AttachIdentity(conn, userID))

	rig.dispatch(conn, userID, `{"event":"join","conversationId":"conv-1"}`)
	assert.Equal(t, []string{"conv-1"}, rig.reg.RoomsOf(conn))

	rig.dispatch(conn, userID, `{"event":"leave","conversationId":"conv-1"}`)
	assert.Empty(t, rig.reg.RoomsOf(conn))
}

func TestDispatchTypingRelays(t *testing.T) {
	rig := newWSRig()
	alice := uuid.New()
	bob := uuid.New()

	aliceConn := rig.reg.Register()
	bobConn := rig.reg.Register()
	require.NoError(t, rig.reg.AttachIdentity(aliceConn, alice))
	require.NoError(t, rig.reg.AttachIdentity(bobConn, bob))
	rig.mux.Join("conv-1", aliceConn)
	rig.mux.Join("conv-1", bobConn)

	rig.dispatch(aliceConn, alice, `{"event":"typing","conversationId":"conv-1"}`)

	assert.Empty(t, drainRaw(aliceConn), "origin must not see their own typing indicator")

	payloads := drainRaw(bobConn)
	require.Len(t, payloads, 1)
	var e models.PresenceEvent
	require.NoError(t, json.Unmarshal(payloads[0], &e))
	assert.Equal(t, models.EventTyping, e.Event)
	assert.Equal(t, alice, e.UserID)
}

func TestDispatchMalformedEventKeepsConnection(t *testing.T) {
	rig := newWSRig()
	userID := uuid.New()
	conn := rig.reg.Register()
	require.NoError(t, rig.reg.AttachIdentity(conn, userID))

	rig.dispatch(conn, userID, `{not json`)

	payloads := drainRaw(conn)
	require.Len(t, payloads, 1)
	var e models.ErrorEvent
	require.NoError(t, json.Unmarshal(payloads[0], &e))
	assert.Equal(t, models.EventError, e.Event)

	// Connection is still usable.
	rig.dispatch(conn, userID, `{"event":"join","conversationId":"conv-1"}`)
	assert.Equal(t, []string{"conv-1"}, rig.reg.RoomsOf(conn))
}

func TestDispatchUnknownEvent(t *testing.T) {
	rig := newWSRig()
	userID := uuid.New()
	conn := rig.reg.Register()
	require.NoError(t, rig.reg.AttachIdentity(conn, userID))

	rig.dispatch(conn, userID, `{"event":"poke"}`)

	payloads := drainRaw(conn)
	require.Len(t, payloads, 1)
	var e models.ErrorEvent
	require.NoError(t, json.Unmarshal(payloads[0], &e))
	assert.Equal(t, "unknown event", e.Reason)
}

func TestDispatchReadReceiptRequiresMessageID(t *testing.T) {
	rig := newWSRig()
	userID := uuid.New()
	conn := rig.reg.Register()
	require.NoError(t, rig.reg.AttachIdentity(conn, userID))

	rig.dispatch(conn, userID, `{"event":"messageRead","conversationId":"conv-1"}`)

	payloads := drainRaw(conn)
	require.Len(t, payloads, 1)
	var e models.ErrorEvent
	require.NoError(t, json.Unmarshal(payloads[0], &e))
	assert.Equal(t, models.EventError, e.Event)
}
