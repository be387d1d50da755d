package history

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "history.db"), testLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.nowFunc = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	return s
}

func TestAppendAndConversation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	conv := NewConversationID()
	other := NewConversationID()

	_, err := s.Append(ctx, Entry{Conversation: conv, Input: "HELP", Command: "HELP", Message: "Welcome", Kind: "info"})
	require.NoError(t, err)
	_, err = s.Append(ctx, Entry{Conversation: other, Input: "LIST /", Command: "LIST", Message: "Contents of /:"})
	require.NoError(t, err)
	_, err = s.Append(ctx, Entry{Conversation: conv, Input: "bogus", Message: "Unknown command"})
	require.NoError(t, err)

	entries, err := s.Conversation(ctx, conv, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "HELP", entries[0].Input)
	assert.Equal(t, "HELP", entries[0].Command)
	assert.Equal(t, "info", entries[0].Kind)
	assert.Equal(t, "bogus", entries[1].Input)
	assert.True(t, entries[0].At.Before(entries[1].At))
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC).UnixNano(), entries[0].At.UnixNano())
}

func TestConversation_LimitKeepsNewestInOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	conv := NewConversationID()

	for _, in := range []string{"one", "two", "three", "four"} {
		_, err := s.Append(ctx, Entry{Conversation: conv, Input: in, Message: in})
		require.NoError(t, err)
	}

	entries, err := s.Conversation(ctx, conv, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "three", entries[0].Input)
	assert.Equal(t, "four", entries[1].Input)
}

func TestRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, conv := range []string{"a", "b", "c"} {
		_, err := s.Append(ctx, Entry{Conversation: conv, Input: conv, Message: string(rune('x' + i))})
		require.NoError(t, err)
	}

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Conversation)
	assert.Equal(t, "c", entries[2].Conversation)
}

func TestAppend_RequiresConversation(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Append(context.Background(), Entry{Input: "x", Message: "y"})
	assert.Error(t, err)
}

func TestForget(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, Entry{Conversation: "gone", Input: "x", Message: "y"})
	require.NoError(t, err)
	_, err = s.Append(ctx, Entry{Conversation: "kept", Input: "x", Message: "y"})
	require.NoError(t, err)

	n, err := s.Forget(ctx, "gone")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Conversation)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(ctx, path, testLogger(t))
	require.NoError(t, err)
	_, err = s.Append(ctx, Entry{Conversation: "c", Input: "HELP", Message: "m"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, testLogger(t))
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.Conversation(ctx, "c", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
