package orch

import (
	"github.com/dkeye/liveclass/internal/core"
	"github.com/dkeye/liveclass/internal/domain"
	"github.com/rs/zerolog/log"
)

// Connect registers a freshly established transport and greets it with its
// connection id.
func (o *Orchestrator) Connect(conn core.SignalConnection) (domain.ConnectionID, error) {
	if o.stopping.Load() {
		return "", ErrShuttingDown
	}
	sid, err := o.Registry.Register(conn)
	if err != nil {
		return "", ErrShuttingDown
	}
	o.send(sid, core.WelcomeMessage{Type: core.TypeWelcome, ID: sid})
	return sid, nil
}

// Join puts sid into room and sends it the peers that were already there.
// Nobody in the new room is told; they learn of sid when its offers arrive.
// A previous room gets peer-left.
func (o *Orchestrator) Join(sid domain.ConnectionID, room domain.RoomID) ([]domain.ConnectionID, bool) {
	if !o.live(sid, string(core.TypeJoin)) {
		return nil, false
	}
	prev, hadRoom := o.Registry.CurrentRoom(sid)
	peers, err := o.Rooms.Join(sid, room)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("join ignored")
		return nil, false
	}
	if hadRoom && prev != room {
		o.Broadcast.BroadcastPeerLeft(prev, sid)
	}
	o.send(sid, core.PeersMessage{Type: core.TypeExistingPeers, Room: room, Peers: peers})
	return peers, true
}

// Leave returns sid to the connected-but-roomless state.
func (o *Orchestrator) Leave(sid domain.ConnectionID) {
	if !o.live(sid, string(core.TypeLeave)) {
		return
	}
	if room, ok := o.Rooms.Leave(sid); ok {
		o.Broadcast.BroadcastPeerLeft(room, sid)
	}
}

// Disconnect is the transport-level cleanup. It is idempotent.
func (o *Orchestrator) Disconnect(sid domain.ConnectionID) {
	room, inRoom := o.Rooms.Leave(sid)
	if !o.Registry.Unregister(sid) {
		return
	}
	o.Metrics.Event("disconnect")
	if inRoom {
		o.Broadcast.BroadcastPeerLeft(room, sid)
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("disconnected")
}

func (o *Orchestrator) Ping(sid domain.ConnectionID) {
	if !o.live(sid, string(core.TypePing)) {
		return
	}
	o.send(sid, core.PongMessage{Type: core.TypePong})
}
