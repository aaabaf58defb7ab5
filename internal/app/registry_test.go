package app

import (
	"testing"

	"github.com/dkeye/liveclass/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAllocatesUniqueIDs(t *testing.T) {
	reg := NewRegistry(nil)
	seen := make(map[domain.ConnectionID]bool)
	for i := 0; i < 100; i++ {
		sid := register(t, reg, &fakeConn{})
		require.NotEmpty(t, sid)
		require.False(t, seen[sid], "duplicate id %s", sid)
		seen[sid] = true
	}
	assert.Equal(t, 100, reg.Count())
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	reg := NewRegistry(nil)
	sid := register(t, reg, &fakeConn{})

	assert.True(t, reg.Unregister(sid))
	assert.False(t, reg.Unregister(sid))
	assert.False(t, reg.Registered(sid))
	_, ok := reg.Get(sid)
	assert.False(t, ok)
}

func TestRegistryCurrentRoom(t *testing.T) {
	reg := NewRegistry(nil)
	sid := register(t, reg, &fakeConn{})

	_, ok := reg.CurrentRoom(sid)
	assert.False(t, ok)

	require.True(t, reg.setRoom(sid, "c1"))
	room, ok := reg.CurrentRoom(sid)
	assert.True(t, ok)
	assert.Equal(t, domain.RoomID("c1"), room)

	// clearing a room sid is no longer in changes nothing
	reg.clearRoom(sid, "c2")
	room, _ = reg.CurrentRoom(sid)
	assert.Equal(t, domain.RoomID("c1"), room)

	reg.clearRoom(sid, "c1")
	_, ok = reg.CurrentRoom(sid)
	assert.False(t, ok)

	assert.False(t, reg.setRoom("ghost", "c1"))
}

func TestRegistryReset(t *testing.T) {
	reg := NewRegistry(nil)
	register(t, reg, &fakeConn{})
	register(t, reg, &fakeConn{})

	got := reg.Reset()
	assert.Len(t, got, 2)
	assert.Zero(t, reg.Count())
	assert.Empty(t, reg.All())

	sid, err := reg.Register(&fakeConn{})
	assert.ErrorIs(t, err, ErrRegistryClosed)
	assert.Empty(t, sid)
	assert.Zero(t, reg.Count(), "a reset registry stays empty")
}
