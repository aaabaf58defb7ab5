package core

import (
	"sync"
	"testing"
	"time"

	"github.com/dkeye/liveclass/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []string
	full   bool
}

func (c *fakeConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return ErrBackpressure
	}
	c.frames = append(c.frames, string(f))
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) got() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

func startRoom(t *testing.T, onResult func(domain.RoomID, PublishResult)) *Room {
	t.Helper()
	r := NewRoom("c1", 16, onResult)
	go r.Run()
	t.Cleanup(r.Stop)
	return r
}

func TestRoomAddMemberReturnsPriorPeers(t *testing.T) {
	r := startRoom(t, nil)

	peers, ok := r.AddMember("a", &fakeConn{})
	require.True(t, ok)
	assert.Empty(t, peers)

	peers, ok = r.AddMember("b", &fakeConn{})
	require.True(t, ok)
	assert.Equal(t, []domain.ConnectionID{"a"}, peers)

	// idempotent re-add
	peers, ok = r.AddMember("b", &fakeConn{})
	require.True(t, ok)
	assert.Equal(t, []domain.ConnectionID{"a"}, peers)
	assert.Equal(t, 2, r.MemberCount())
}

func TestRoomDiesWhenEmpty(t *testing.T) {
	r := startRoom(t, nil)
	r.AddMember("a", &fakeConn{})

	removed, empty := r.RemoveMember("a")
	assert.True(t, removed)
	assert.True(t, empty)
	assert.True(t, r.Dead())

	_, ok := r.AddMember("b", &fakeConn{})
	assert.False(t, ok)
	assert.False(t, r.Broadcast("", Frame("x")))
}

func TestRoomBroadcastExcludesAndKeepsOrder(t *testing.T) {
	r := startRoom(t, nil)
	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}
	r.AddMember("a", a)
	r.AddMember("b", b)
	r.AddMember("c", c)

	seq := []string{"start", "move", "move", "end"}
	for _, s := range seq {
		require.True(t, r.Broadcast("a", Frame(s)))
	}

	require.Eventually(t, func() bool { return len(b.got()) == 4 && len(c.got()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, seq, b.got())
	assert.Equal(t, seq, c.got())
	assert.Empty(t, a.got())
}

func TestRoomBroadcastReportsBackpressure(t *testing.T) {
	results := make(chan PublishResult, 1)
	r := startRoom(t, func(_ domain.RoomID, res PublishResult) { results <- res })
	r.AddMember("a", &fakeConn{})
	r.AddMember("slow", &fakeConn{full: true})

	require.True(t, r.Broadcast("", Frame("hi")))

	select {
	case res := <-results:
		assert.Equal(t, 1, res.SendTo)
		require.Len(t, res.Dropped, 1)
		assert.Equal(t, domain.ConnectionID("slow"), res.Dropped[0].ID)
	case <-time.After(time.Second):
		t.Fatal("no publish result")
	}
}

func TestDispatcherStopRejectsSubmit(t *testing.T) {
	d := NewDispatcher(1)
	d.Stop()
	assert.False(t, d.Submit(func() {}))
	d.Stop() // second stop is a no-op
}
