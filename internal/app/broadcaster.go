package app

import (
	"context"
	"time"

	"github.com/dkeye/liveclass/internal/core"
	"github.com/dkeye/liveclass/internal/domain"
	"github.com/dkeye/liveclass/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// ChatStore is the storage side-call made for room chat.
type ChatStore interface {
	PersistChatMessage(ctx context.Context, ev domain.ChatEvent) error
}

// Broadcaster fans events out to rooms, or to every connection for lobby
// chat. Room events go through the room's dispatcher; lobby chat has a
// dispatcher of its own.
type Broadcaster struct {
	rooms          *RoomManager
	reg            *Registry
	store          ChatStore
	persistTimeout time.Duration
	onResult       func(domain.RoomID, core.PublishResult)
	metrics        *metrics.Metrics

	lobby *core.Dispatcher
	wg    conc.WaitGroup
}

type BroadcasterOptions struct {
	Store          ChatStore
	PersistTimeout time.Duration
	QueueSize      int
	OnResult       func(domain.RoomID, core.PublishResult)
	Metrics        *metrics.Metrics
}

// NewBroadcaster starts the lobby dispatcher; Close stops it.
func NewBroadcaster(rooms *RoomManager, reg *Registry, opts BroadcasterOptions) *Broadcaster {
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}
	b := &Broadcaster{
		rooms:          rooms,
		reg:            reg,
		store:          opts.Store,
		persistTimeout: opts.PersistTimeout,
		onResult:       opts.OnResult,
		metrics:        opts.Metrics,
		lobby:          core.NewDispatcher(opts.QueueSize),
	}
	b.wg.Go(b.lobby.Run)
	return b
}

// BroadcastChat persists room chat in the background and delivers the event
// to every member, the sender included. Without a room it reaches every
// registered connection.
func (b *Broadcaster) BroadcastChat(ev domain.ChatEvent) bool {
	f, err := core.Encode(core.NewChatMessage(ev))
	if err != nil {
		log.Error().Err(err).Str("module", "app.broadcast").Msg("chat encode")
		return false
	}
	if ev.Room == "" {
		return b.lobby.Submit(func() {
			res := core.Send(b.reg.All(), f)
			log.Debug().Str("module", "app.broadcast").Int("sent_to", res.SendTo).Msg("lobby chat delivered")
			b.report("", res)
		})
	}

	b.persist(ev)
	room, ok := b.rooms.Get(ev.Room)
	if !ok {
		log.Info().Str("module", "app.broadcast").Str("room", string(ev.Room)).Msg("chat for room without live members")
		return false
	}
	return room.Broadcast("", f)
}

// BroadcastDraw delivers a stroke segment to every member but its origin.
func (b *Broadcaster) BroadcastDraw(ev domain.DrawEvent) bool {
	f, err := core.Encode(core.NewDrawMessage(ev))
	if err != nil {
		log.Error().Err(err).Str("module", "app.broadcast").Msg("draw encode")
		return false
	}
	return b.toRoom(ev.Room, ev.From, f, "draw")
}

func (b *Broadcaster) BroadcastClear(roomID domain.RoomID, from domain.ConnectionID) bool {
	f, err := core.Encode(core.ClearMessage{Type: core.TypeClearBoard, Room: roomID, From: from})
	if err != nil {
		log.Error().Err(err).Str("module", "app.broadcast").Msg("clear encode")
		return false
	}
	return b.toRoom(roomID, from, f, "clearBoard")
}

// BroadcastNotification forwards a CRUD-layer event to every member. It is
// dropped, not queued, when the room has no live members.
func (b *Broadcaster) BroadcastNotification(ev domain.NotificationEvent) bool {
	f, err := core.Encode(core.NewNotificationMessage(ev))
	if err != nil {
		log.Error().Err(err).Str("module", "app.broadcast").Msg("notification encode")
		return false
	}
	return b.toRoom(ev.Room, "", f, string(ev.Kind))
}

// BroadcastPeerLeft tells the remaining members that peer is gone.
func (b *Broadcaster) BroadcastPeerLeft(roomID domain.RoomID, peer domain.ConnectionID) bool {
	f, err := core.Encode(core.PeerLeftMessage{Type: core.TypePeerLeft, Room: roomID, Peer: peer})
	if err != nil {
		log.Error().Err(err).Str("module", "app.broadcast").Msg("peer-left encode")
		return false
	}
	return b.toRoom(roomID, peer, f, "peer-left")
}

// Close stops the lobby dispatcher and waits for in-flight persists until
// ctx is done.
func (b *Broadcaster) Close(ctx context.Context) error {
	b.lobby.Stop()
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		log.Warn().Str("module", "app.broadcast").Msg("gave up waiting for chat persists")
		return ctx.Err()
	}
}

func (b *Broadcaster) toRoom(roomID domain.RoomID, exclude domain.ConnectionID, f core.Frame, what string) bool {
	room, ok := b.rooms.Get(roomID)
	if !ok {
		log.Info().Str("module", "app.broadcast").Str("room", string(roomID)).Str("event", what).Msg("room not live, event dropped")
		return false
	}
	if !room.Broadcast(exclude, f) {
		log.Info().Str("module", "app.broadcast").Str("room", string(roomID)).Str("event", what).Msg("room closed while queueing, event dropped")
		return false
	}
	return true
}

func (b *Broadcaster) persist(ev domain.ChatEvent) {
	if b.store == nil {
		return
	}
	b.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.persistTimeout)
		defer cancel()
		if err := b.store.PersistChatMessage(ctx, ev); err != nil {
			b.metrics.PersistFailed()
			log.Error().Err(err).Str("module", "app.broadcast").Str("room", string(ev.Room)).Str("sid", string(ev.From)).Msg("chat persist failed")
		}
	})
}

func (b *Broadcaster) report(roomID domain.RoomID, res core.PublishResult) {
	if b.onResult != nil && len(res.Dropped) > 0 {
		b.onResult(roomID, res)
	}
}
