package app

import (
	"sync"

	"github.com/dkeye/liveclass/internal/core"
	"github.com/dkeye/liveclass/internal/domain"
	"github.com/dkeye/liveclass/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// RoomManager is the room directory. Rooms are created on first join and
// dropped as soon as their last member leaves. Join and Leave for a single
// connection are expected to come from that connection's own read loop.
type RoomManager struct {
	reg       *Registry
	queueSize int
	onResult  func(domain.RoomID, core.PublishResult)
	metrics   *metrics.Metrics

	mu    sync.Mutex
	rooms map[domain.RoomID]*core.Room
	wg    conc.WaitGroup
}

func NewRoomManager(
	reg *Registry,
	queueSize int,
	onResult func(domain.RoomID, core.PublishResult),
	m *metrics.Metrics,
) *RoomManager {
	return &RoomManager{
		reg:       reg,
		queueSize: queueSize,
		onResult:  onResult,
		metrics:   m,
		rooms:     make(map[domain.RoomID]*core.Room),
	}
}

// Join moves sid into roomID, leaving its previous room first. It returns
// the members that were already in roomID, without sid.
func (f *RoomManager) Join(sid domain.ConnectionID, roomID domain.RoomID) ([]domain.ConnectionID, error) {
	if err := roomID.Validate(); err != nil {
		return nil, err
	}
	conn, ok := f.reg.Get(sid)
	if !ok {
		return nil, ErrUnknownConnection
	}

	if prev, ok := f.reg.CurrentRoom(sid); ok {
		if prev == roomID {
			if room, ok := f.Get(roomID); ok && room.HasMember(sid) {
				peers, _ := room.AddMember(sid, conn)
				return peers, nil
			}
		} else {
			f.removeFrom(prev, sid)
			log.Info().Str("module", "app.rooms").Str("sid", string(sid)).Str("from_room", string(prev)).Msg("left room for another")
		}
	}

	for {
		room := f.getOrCreate(roomID)
		peers, ok := room.AddMember(sid, conn)
		if !ok {
			// lost the race against the room's last member leaving
			continue
		}
		if !f.reg.setRoom(sid, roomID) {
			f.removeFrom(roomID, sid)
			return nil, ErrUnknownConnection
		}
		log.Info().Str("module", "app.rooms").Str("sid", string(sid)).Str("room", string(roomID)).Int("peers", len(peers)).Msg("joined room")
		return peers, nil
	}
}

// Leave takes sid out of its current room, if any, and reports which room
// that was.
func (f *RoomManager) Leave(sid domain.ConnectionID) (domain.RoomID, bool) {
	roomID, ok := f.reg.CurrentRoom(sid)
	if !ok {
		return "", false
	}
	f.removeFrom(roomID, sid)
	f.reg.clearRoom(sid, roomID)
	log.Info().Str("module", "app.rooms").Str("sid", string(sid)).Str("room", string(roomID)).Msg("left room")
	return roomID, true
}

// Members snapshots roomID's members. It is empty when the room is not live.
func (f *RoomManager) Members(roomID domain.RoomID) []domain.ConnectionID {
	if room, ok := f.Get(roomID); ok {
		return room.Members()
	}
	return []domain.ConnectionID{}
}

func (f *RoomManager) Get(roomID domain.RoomID) (*core.Room, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok || room.Dead() {
		return nil, false
	}
	return room, true
}

func (f *RoomManager) List() []domain.Room {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Room, 0, len(f.rooms))
	for id, r := range f.rooms {
		if n := r.MemberCount(); n > 0 {
			out = append(out, domain.Room{ID: id, MemberCount: n})
		}
	}
	return out
}

func (f *RoomManager) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rooms)
}

// Close stops every room and waits for their dispatchers to exit.
func (f *RoomManager) Close() {
	f.mu.Lock()
	for id, r := range f.rooms {
		r.Stop()
		delete(f.rooms, id)
		f.metrics.RoomDeleted()
	}
	f.mu.Unlock()
	f.wg.Wait()
	log.Info().Str("module", "app.rooms").Msg("room directory closed")
}

func (f *RoomManager) getOrCreate(roomID domain.RoomID) *core.Room {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, exists := f.rooms[roomID]
	if exists && !room.Dead() {
		return room
	}
	room = core.NewRoom(roomID, f.queueSize, f.onResult)
	f.rooms[roomID] = room
	f.wg.Go(room.Run)
	if !exists {
		f.metrics.RoomCreated()
		log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Msg("room created")
	}
	return room
}

func (f *RoomManager) removeFrom(roomID domain.RoomID, sid domain.ConnectionID) {
	f.mu.Lock()
	room, ok := f.rooms[roomID]
	f.mu.Unlock()
	if !ok {
		return
	}
	if _, empty := room.RemoveMember(sid); !empty {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rooms[roomID] == room {
		delete(f.rooms, roomID)
		f.metrics.RoomDeleted()
		log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Msg("room deleted")
	}
}
