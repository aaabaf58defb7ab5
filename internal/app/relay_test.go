package app

import (
	"encoding/json"
	"testing"

	"github.com/dkeye/liveclass/internal/core"
	"github.com/dkeye/liveclass/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayOfferReachesTargetOnly(t *testing.T) {
	reg := NewRegistry(nil)
	relay := NewSignalRelay(reg, nil, nil)
	ca, cb, cc := &fakeConn{}, &fakeConn{}, &fakeConn{}
	a := register(t, reg, ca)
	b := register(t, reg, cb)
	register(t, reg, cc)

	payload := json.RawMessage(`{"type":"offer","sdp":"v=0\r\no=- 1 2 IN IP4 127.0.0.1"}`)
	require.True(t, relay.RelayOffer(a, b, payload))

	msgs := cb.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "signal-initiate", msgs[0]["type"])
	assert.Equal(t, string(a), msgs[0]["from"])
	raw, _ := json.Marshal(msgs[0]["payload"])
	assert.JSONEq(t, string(payload), string(raw))

	assert.Zero(t, ca.count())
	assert.Zero(t, cc.count())
}

func TestRelayReturnCarriesAnswerer(t *testing.T) {
	reg := NewRegistry(nil)
	relay := NewSignalRelay(reg, nil, nil)
	ca, cb := &fakeConn{}, &fakeConn{}
	a := register(t, reg, ca)
	b := register(t, reg, cb)

	require.True(t, relay.RelayReturn(a, b, json.RawMessage(`{"type":"answer"}`)))

	msgs := ca.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "signal-return", msgs[0]["type"])
	assert.Equal(t, string(b), msgs[0]["from"])
	assert.Zero(t, cb.count())
}

func TestRelayToVanishedPeerIsDropped(t *testing.T) {
	reg := NewRegistry(nil)
	relay := NewSignalRelay(reg, nil, nil)
	ca := &fakeConn{}
	a := register(t, reg, ca)
	b := register(t, reg, &fakeConn{})
	reg.Unregister(b)

	assert.False(t, relay.RelayOffer(a, b, json.RawMessage(`{}`)))
	assert.Zero(t, ca.count(), "sender is not told about the drop")
}

func TestRelayToFullPeerIsDropped(t *testing.T) {
	reg := NewRegistry(nil)
	relay := NewSignalRelay(reg, nil, nil)
	a := register(t, reg, &fakeConn{})
	b := register(t, reg, &fakeConn{full: true})

	assert.False(t, relay.RelayOffer(a, b, json.RawMessage(`{}`)))
}

func TestRelayBackpressureReachesPolicyHook(t *testing.T) {
	reg := NewRegistry(nil)
	var (
		gotRoom domain.RoomID
		got     []core.PublishResult
	)
	relay := NewSignalRelay(reg, nil, func(room domain.RoomID, res core.PublishResult) {
		gotRoom = room
		got = append(got, res)
	})
	a := register(t, reg, &fakeConn{})
	b := register(t, reg, &fakeConn{full: true})
	require.True(t, reg.setRoom(b, "C1"))

	assert.False(t, relay.RelayOffer(a, b, json.RawMessage(`{"sdp":"x"}`)))
	require.Len(t, got, 1)
	assert.Equal(t, domain.RoomID("C1"), gotRoom)
	require.Len(t, got[0].Dropped, 1)
	assert.Equal(t, b, got[0].Dropped[0].ID)

	reg.Unregister(b)
	assert.False(t, relay.RelayReturn(b, a, json.RawMessage(`{}`)))
	assert.Len(t, got, 1, "a vanished target is not a slow one")
}
