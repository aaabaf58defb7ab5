package orch

import (
	"fmt"

	"github.com/dkeye/liveclass/internal/core"
	"github.com/dkeye/liveclass/internal/domain"
	"github.com/rs/zerolog/log"
)

// Chat stamps the event with sid and the hub clock, then broadcasts it.
func (o *Orchestrator) Chat(sid domain.ConnectionID, ev domain.ChatEvent) bool {
	if !o.live(sid, string(core.TypeChat)) {
		return false
	}
	ev.From = sid
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = o.now()
	}
	if err := ev.Validate(); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("malformed chat ignored")
		return false
	}
	return o.Broadcast.BroadcastChat(ev)
}

func (o *Orchestrator) Draw(sid domain.ConnectionID, ev domain.DrawEvent) bool {
	if !o.live(sid, string(core.TypeDraw)) {
		return false
	}
	ev.From = sid
	if err := ev.Validate(); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("malformed draw ignored")
		return false
	}
	if !o.inRoom(sid, ev.Room, "draw") {
		return false
	}
	return o.Broadcast.BroadcastDraw(ev)
}

func (o *Orchestrator) ClearBoard(sid domain.ConnectionID, room domain.RoomID) bool {
	if !o.live(sid, string(core.TypeClearBoard)) {
		return false
	}
	if err := room.Validate(); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("malformed clearBoard ignored")
		return false
	}
	if !o.inRoom(sid, room, "clearBoard") {
		return false
	}
	return o.Broadcast.BroadcastClear(room, sid)
}

// Publish is the entry point for the CRUD layer once an assignment or poll
// change is committed. ErrRoomNotLive is informational: the event is
// dropped, not queued.
func (o *Orchestrator) Publish(ev domain.NotificationEvent) error {
	if o.stopping.Load() {
		return ErrShuttingDown
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	o.Metrics.Event(string(core.TypeNotification))
	if !o.Broadcast.BroadcastNotification(ev) {
		return ErrRoomNotLive
	}
	return nil
}

func (o *Orchestrator) inRoom(sid domain.ConnectionID, room domain.RoomID, event string) bool {
	current, ok := o.Registry.CurrentRoom(sid)
	if ok && current == room {
		return true
	}
	log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Str("current", string(current)).Str("event", event).Msg("misdirected event ignored")
	return false
}
