package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dkeye/liveclass/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info().Str("module", "storage").Str("driver", DriverSQLite).Str("path", path).Msg("store opened")
	return &SQLite{db: db}, nil
}

func migrateSQLite(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id TEXT NOT NULL,
		connection_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		user_name TEXT NOT NULL,
		user_role TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chat_messages_room ON chat_messages(room_id, id);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *SQLite) PersistChatMessage(ctx context.Context, ev domain.ChatEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (room_id, connection_id, user_id, user_name, user_role, text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(ev.Room), string(ev.From), string(ev.Sender.UserID), ev.Sender.Name, string(ev.Sender.Role), ev.Text, ev.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (s *SQLite) RecentMessages(ctx context.Context, room domain.RoomID, limit int) ([]domain.ChatEvent, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT room_id, connection_id, user_id, user_name, user_role, text, created_at FROM (
			SELECT * FROM chat_messages WHERE room_id = ? ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`,
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

func (s *SQLite) Close() error {
	return s.db.Close()
}
