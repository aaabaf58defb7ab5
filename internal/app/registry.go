package app

import (
	"errors"
	"sync"

	"github.com/dkeye/liveclass/internal/core"
	"github.com/dkeye/liveclass/internal/domain"
	"github.com/dkeye/liveclass/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownConnection = errors.New("unknown connection")
	ErrRegistryClosed    = errors.New("registry closed")
)

type sessionEntry struct {
	Conn core.SignalConnection
	Room domain.RoomID
}

// Registry tracks live connections and the room each one is in.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnectionID]*sessionEntry
	closed   bool
	metrics  *metrics.Metrics
}

func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		sessions: make(map[domain.ConnectionID]*sessionEntry),
		metrics:  m,
	}
}

// Register allocates a fresh connection id bound to conn. It fails with
// ErrRegistryClosed once Reset has run.
func (r *Registry) Register(conn core.SignalConnection) (domain.ConnectionID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrRegistryClosed
	}
	var sid domain.ConnectionID
	for {
		sid = domain.ConnectionID(uuid.NewString())
		if _, taken := r.sessions[sid]; !taken {
			break
		}
	}
	r.sessions[sid] = &sessionEntry{Conn: conn}
	r.metrics.ConnectionOpened()
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("registered connection")
	return sid, nil
}

// Unregister removes sid. Removing an unknown id is a no-op; transports
// may report closure more than once.
func (r *Registry) Unregister(sid domain.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sid]; !ok {
		return false
	}
	delete(r.sessions, sid)
	r.metrics.ConnectionClosed()
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unregistered connection")
	return true
}

func (r *Registry) Get(sid domain.ConnectionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Conn, true
	}
	return nil, false
}

// CurrentRoom reports the room sid is in. ok is false when sid is unknown
// or not in a room.
func (r *Registry) CurrentRoom(sid domain.ConnectionID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.Room == "" {
		return "", false
	}
	return e.Room, true
}

func (r *Registry) Registered(sid domain.ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[sid]
	return ok
}

func (r *Registry) setRoom(sid domain.ConnectionID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.Room = room
	return true
}

// clearRoom resets sid's room only if it still points at room.
func (r *Registry) clearRoom(sid domain.ConnectionID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok && e.Room == room {
		e.Room = ""
	}
}

// All snapshots every live connection.
func (r *Registry) All() []core.Recipient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Recipient, 0, len(r.sessions))
	for sid, e := range r.sessions {
		out = append(out, core.Recipient{ID: sid, Conn: e.Conn})
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Reset drops every entry and returns what was there, for shutdown. The
// registry refuses new connections afterwards.
func (r *Registry) Reset() []core.Recipient {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.Recipient, 0, len(r.sessions))
	for sid, e := range r.sessions {
		out = append(out, core.Recipient{ID: sid, Conn: e.Conn})
		r.metrics.ConnectionClosed()
	}
	r.sessions = make(map[domain.ConnectionID]*sessionEntry)
	r.closed = true
	log.Info().Str("module", "app.registry").Int("count", len(out)).Msg("registry reset")
	return out
}
