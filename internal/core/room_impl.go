package core

import (
	"sync"

	"github.com/dkeye/liveclass/internal/domain"
	"github.com/rs/zerolog/log"
)

// Room is a threadsafe in-memory live room.
// Membership changes and recipient snapshots share one lock; deliveries run
// on the room's own dispatcher so events leave in the order they arrived.
// It never closes adapter-owned resources.
type Room struct {
	id   domain.RoomID
	disp *Dispatcher

	mu      sync.RWMutex
	members map[domain.ConnectionID]SignalConnection
	dead    bool

	onResult func(domain.RoomID, PublishResult)
}

// NewRoom builds a room whose dispatcher queue holds queueSize events.
// onResult, if set, runs on the dispatcher after every delivery.
func NewRoom(id domain.RoomID, queueSize int, onResult func(domain.RoomID, PublishResult)) *Room {
	return &Room{
		id:       id,
		disp:     NewDispatcher(queueSize),
		members:  make(map[domain.ConnectionID]SignalConnection),
		onResult: onResult,
	}
}

func (r *Room) ID() domain.RoomID { return r.id }

// Run blocks until the room is stopped or becomes empty.
func (r *Room) Run() { r.disp.Run() }

// AddMember adds sid and returns the members that were present before it,
// excluding sid itself. Adding an existing member changes nothing. ok is
// false when the room already died and must not be used.
func (r *Room) AddMember(sid domain.ConnectionID, conn SignalConnection) (peers []domain.ConnectionID, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dead {
		return nil, false
	}
	peers = make([]domain.ConnectionID, 0, len(r.members))
	for id := range r.members {
		if id != sid {
			peers = append(peers, id)
		}
	}
	if _, exists := r.members[sid]; !exists {
		r.members[sid] = conn
		log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(sid)).Msg("member added")
	}
	return peers, true
}

// RemoveMember drops sid. When the last member leaves the room dies: its
// dispatcher stops and empty is true.
func (r *Room) RemoveMember(sid domain.ConnectionID) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, removed = r.members[sid]; removed {
		delete(r.members, sid)
		log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(sid)).Msg("member removed")
	}
	if len(r.members) == 0 && !r.dead {
		r.dead = true
		r.disp.Stop()
	}
	return removed, r.dead
}

func (r *Room) HasMember(sid domain.ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[sid]
	return ok
}

func (r *Room) Members() []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ConnectionID, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	return out
}

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *Room) Dead() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dead
}

// Broadcast queues f for every member except exclude (pass "" to reach all
// members). Recipients are snapshotted when the event reaches the head of
// the queue. It reports false when the room is dead.
func (r *Room) Broadcast(exclude domain.ConnectionID, f Frame) bool {
	return r.disp.Submit(func() {
		res := Send(r.recipients(exclude), f)
		log.Debug().Str("module", "core.room").Str("room", string(r.id)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
		if r.onResult != nil {
			r.onResult(r.id, res)
		}
	})
}

func (r *Room) recipients(exclude domain.ConnectionID) []Recipient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Recipient, 0, len(r.members))
	for id, conn := range r.members {
		if id == exclude {
			continue
		}
		out = append(out, Recipient{ID: id, Conn: conn})
	}
	return out
}

// Stop kills the room regardless of membership. Used on shutdown.
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dead = true
	r.disp.Stop()
}
