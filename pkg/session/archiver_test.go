package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/chat"
)

func setupArchiver(t *testing.T) *Archiver {
	t.Helper()

	a, err := NewArchiver(filepath.Join(t.TempDir(), "transcripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func waitForTranscript(t *testing.T, a *Archiver, sessionID string) Transcript {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		tr, ok, err := a.Load(context.Background(), sessionID)
		require.NoError(t, err)
		if ok {
			return tr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("transcript %q never arrived", sessionID)
	return Transcript{}
}

func TestArchiver(t *testing.T) {
	t.Run("should persist a queued snapshot", func(t *testing.T) {
		a := setupArchiver(t)

		a.Upsert("sess-1", "user-1", []chat.Message{
			chat.NewUserMessage("hello"),
			chat.NewAssistantMessage("hi"),
		})

		tr := waitForTranscript(t, a, "sess-1")
		assert.Equal(t, "user-1", tr.Identity)
		require.Len(t, tr.Messages, 2)
		assert.Equal(t, "hello", tr.Messages[0].Content)
	})

	t.Run("should overwrite prior snapshot for the same session", func(t *testing.T) {
		a := setupArchiver(t)

		a.Upsert("sess-1", "user-1", []chat.Message{chat.NewUserMessage("first")})
		waitForTranscript(t, a, "sess-1")

		a.Upsert("sess-1", "user-1", []chat.Message{
			chat.NewUserMessage("first"),
			chat.NewAssistantMessage("second"),
		})

		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			tr, ok, err := a.Load(context.Background(), "sess-1")
			require.NoError(t, err)
			if ok && len(tr.Messages) == 2 {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Fatal("snapshot was never replaced")
	})

	t.Run("should report absent transcripts without error", func(t *testing.T) {
		a := setupArchiver(t)

		_, ok, err := a.Load(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("should list sessions for an identity newest first", func(t *testing.T) {
		a := setupArchiver(t)

		a.Upsert("sess-a", "user-1", []chat.Message{chat.NewUserMessage("a")})
		a.Upsert("sess-b", "user-2", []chat.Message{chat.NewUserMessage("b")})
		waitForTranscript(t, a, "sess-a")
		waitForTranscript(t, a, "sess-b")

		ids, err := a.ListByIdentity(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"sess-a"}, ids)
	})

	t.Run("should drain the queue on close", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "transcripts.db")

		a, err := NewArchiver(path)
		require.NoError(t, err)
		a.Upsert("sess-1", "user-1", []chat.Message{chat.NewUserMessage("hello")})
		require.NoError(t, a.Close())

		reopened, err := NewArchiver(path)
		require.NoError(t, err)
		defer reopened.Close()

		tr, ok, err := reopened.Load(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Len(t, tr.Messages, 1)
	})
}
