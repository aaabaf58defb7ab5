package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/dkeye/liveclass/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chat(room domain.RoomID, text string, at time.Time) domain.ChatEvent {
	return domain.ChatEvent{
		Room:      room,
		From:      "conn-1",
		Sender:    domain.Sender{UserID: "u1", Name: "ann", Role: domain.RoleStudent},
		Text:      text,
		CreatedAt: at,
	}
}

// exerciseStore runs the same history checks against any backend.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.PersistChatMessage(ctx, chat("c1", fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, s.PersistChatMessage(ctx, chat("c2", "other", base)))

	got, err := s.RecentMessages(ctx, "c1", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "m2", got[0].Text)
	assert.Equal(t, "m4", got[2].Text)
	assert.Equal(t, domain.RoleStudent, got[0].Sender.Role)
	assert.Equal(t, domain.ConnectionID("conn-1"), got[0].From)
	assert.True(t, got[2].CreatedAt.Equal(base.Add(4*time.Second)))

	none, err := s.RecentMessages(ctx, "empty", 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	for _, limit := range []int{0, -1} {
		_, err = s.RecentMessages(ctx, "c1", limit)
		assert.ErrorIs(t, err, ErrInvalidLimit)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("LIVECLASS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LIVECLASS_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.pool.Exec(ctx, "TRUNCATE chat_messages")
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestOpenDrivers(t *testing.T) {
	s, err := Open(context.Background(), DriverNone, "")
	require.NoError(t, err)
	require.NoError(t, s.PersistChatMessage(context.Background(), chat("c1", "x", time.Now())))
	got, err := s.RecentMessages(context.Background(), "c1", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Open(context.Background(), "mongo", "")
	assert.Error(t, err)
}

func TestPersistHonoursContext(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.PersistChatMessage(ctx, chat("c1", "late", time.Now())))
}
