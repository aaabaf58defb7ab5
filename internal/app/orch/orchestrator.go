// Package orch holds the live-session hub: it owns the registry, room
// directory, signaling relay and broadcaster and routes every inbound event
// to the right one.
package orch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dkeye/liveclass/internal/app"
	"github.com/dkeye/liveclass/internal/core"
	"github.com/dkeye/liveclass/internal/domain"
	"github.com/dkeye/liveclass/internal/metrics"
	"github.com/rs/zerolog/log"
)

var (
	ErrRoomNotLive  = errors.New("room has no live members")
	ErrShuttingDown = errors.New("hub shutting down")
)

type Options struct {
	Store          app.ChatStore
	Policy         app.Policy
	Metrics        *metrics.Metrics
	RoomQueue      int
	PersistTimeout time.Duration
	Now            func() time.Time
}

type Orchestrator struct {
	Registry  *app.Registry
	Rooms     *app.RoomManager
	Relay     *app.SignalRelay
	Broadcast *app.Broadcaster
	Policy    app.Policy
	Metrics   *metrics.Metrics

	now      func() time.Time
	stopping atomic.Bool
}

func New(opts Options) *Orchestrator {
	if opts.Policy == nil {
		opts.Policy = app.SimplePolicy{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	o := &Orchestrator{
		Policy:  opts.Policy,
		Metrics: opts.Metrics,
		now:     opts.Now,
	}
	o.Registry = app.NewRegistry(opts.Metrics)
	o.Rooms = app.NewRoomManager(o.Registry, opts.RoomQueue, o.onPublish, opts.Metrics)
	o.Relay = app.NewSignalRelay(o.Registry, opts.Metrics, o.onPublish)
	o.Broadcast = app.NewBroadcaster(o.Rooms, o.Registry, app.BroadcasterOptions{
		Store:          opts.Store,
		PersistTimeout: opts.PersistTimeout,
		QueueSize:      opts.RoomQueue,
		OnResult:       o.onPublish,
		Metrics:        opts.Metrics,
	})
	return o
}

// onPublish applies the backpressure policy to members that could not take
// a frame. It runs on a room dispatcher or a sender's read loop, so it must
// not block.
func (o *Orchestrator) onPublish(room domain.RoomID, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		action := o.Policy.OnBackPressure(room, slow)
		o.Metrics.BackpressureHit(action.String())
		switch action {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("sid", string(slow.ID)).Str("room", string(room)).Msg("slow member kicked")
			slow.Conn.Close()
		case app.DropFrame:
			log.Debug().Str("module", "orch").Str("sid", string(slow.ID)).Str("room", string(room)).Msg("frame dropped for slow member")
		case app.NoAction:
		}
	}
}

// live reports whether sid may still be processed; Terminated connections
// and a stopping hub are ignored.
func (o *Orchestrator) live(sid domain.ConnectionID, event string) bool {
	if o.stopping.Load() {
		return false
	}
	if !o.Registry.Registered(sid) {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("event", event).Msg("event from terminated connection ignored")
		return false
	}
	o.Metrics.Event(event)
	return true
}

func (o *Orchestrator) send(sid domain.ConnectionID, v any) {
	conn, ok := o.Registry.Get(sid)
	if !ok {
		return
	}
	f, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode")
		return
	}
	if err := conn.TrySend(f); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("direct send failed")
	}
}

// Shutdown closes every connection, clears the registry and the room
// directory, then waits for in-flight chat persists until ctx is done.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	if !o.stopping.CompareAndSwap(false, true) {
		return ErrShuttingDown
	}
	conns := o.Registry.Reset()
	for _, c := range conns {
		c.Conn.Close()
	}
	o.Rooms.Close()
	err := o.Broadcast.Close(ctx)
	log.Info().Str("module", "orch").Int("closed", len(conns)).Msg("hub stopped")
	return err
}
