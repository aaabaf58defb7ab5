package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/liveclass/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS chat_messages (
		id BIGSERIAL PRIMARY KEY,
		room_id TEXT NOT NULL,
		connection_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		user_name TEXT NOT NULL,
		user_role TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_room ON chat_messages(room_id, id);
	`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	log.Info().Str("module", "storage").Str("driver", DriverPostgres).Msg("store opened")
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) PersistChatMessage(ctx context.Context, ev domain.ChatEvent) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO chat_messages (room_id, connection_id, user_id, user_name, user_role, text, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(ev.Room), string(ev.From), string(ev.Sender.UserID), ev.Sender.Name, string(ev.Sender.Role), ev.Text, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (p *Postgres) RecentMessages(ctx context.Context, room domain.RoomID, limit int) ([]domain.ChatEvent, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := p.pool.Query(ctx,
		`SELECT room_id, connection_id, user_id, user_name, user_role, text, created_at FROM (
			SELECT * FROM chat_messages WHERE room_id = $1 ORDER BY id DESC LIMIT $2
		 ) recent ORDER BY id ASC`,
		string(room), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChatEvent, 0, limit)
	for rows.Next() {
		var (
			ev                        domain.ChatEvent
			roomID, connID, uid, role string
			createdAt                 time.Time
		)
		if err := rows.Scan(&roomID, &connID, &uid, &ev.Sender.Name, &role, &ev.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		ev.Room = domain.RoomID(roomID)
		ev.From = domain.ConnectionID(connID)
		ev.Sender.UserID = domain.UserID(uid)
		ev.Sender.Role = domain.Role(role)
		ev.CreatedAt = createdAt
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
