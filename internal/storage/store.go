// Package storage persists live-class chat so the history survives the
// session. The hub only writes; the HTTP layer reads history back.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/liveclass/internal/domain"
)

var ErrInvalidLimit = errors.New("history limit must be positive")

type Store interface {
	PersistChatMessage(ctx context.Context, ev domain.ChatEvent) error
	// RecentMessages returns up to limit messages for room, oldest first.
	// A non-positive limit is ErrInvalidLimit.
	RecentMessages(ctx context.Context, room domain.RoomID, limit int) ([]domain.ChatEvent, error)
	Close() error
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Open connects to the configured backend and makes sure the schema exists.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(dsn)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	case DriverNone, "":
		return Nop{}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

// Nop drops writes and has no history.
type Nop struct{}

func (Nop) PersistChatMessage(context.Context, domain.ChatEvent) error { return nil }

func (Nop) RecentMessages(context.Context, domain.RoomID, int) ([]domain.ChatEvent, error) {
	return []domain.ChatEvent{}, nil
}

func (Nop) Close() error { return nil }
