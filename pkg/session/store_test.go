package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/chat"
)

func TestNewSessionID(t *testing.T) {
	t.Run("should generate unique ids", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			id := NewSessionID()
			assert.Len(t, id, sessionIDLength)
			assert.False(t, seen[id], "duplicate session id %q", id)
			seen[id] = true
		}
	})
}

func TestResolve(t *testing.T) {
	t.Run("should reuse the session bound to an identity", func(t *testing.T) {
		store := NewStore()

		first := store.Resolve("user-1")
		second := store.Resolve("user-1")
		assert.Equal(t, first, second)
	})

	t.Run("should give anonymous callers a fresh session each time", func(t *testing.T) {
		store := NewStore()

		first := store.Resolve("")
		second := store.Resolve("")
		assert.NotEqual(t, first, second)
	})

	t.Run("should mint a new session after the bound one is cleared", func(t *testing.T) {
		store := NewStore()

		first := store.Resolve("user-1")
		store.Clear(first)

		second := store.Resolve("user-1")
		assert.NotEqual(t, first, second)
	})
}

func TestAppendAndHistory(t *testing.T) {
	t.Run("should append messages in order", func(t *testing.T) {
		store := NewStore()
		id := store.Resolve("user-1")

		require.NoError(t, store.Append(id,
			chat.NewUserMessage("hello"),
			chat.NewAssistantMessage("hi there"),
		))

		history := store.History(id)
		require.Len(t, history, 2)
		assert.Equal(t, chat.RoleUser, history[0].Role)
		assert.Equal(t, "hello", history[0].Content)
		assert.Equal(t, chat.RoleAssistant, history[1].Role)
	})

	t.Run("should stamp missing timestamps", func(t *testing.T) {
		store := NewStore()
		id := store.Resolve("user-1")

		require.NoError(t, store.Append(id, chat.NewUserMessage("hello")))

		history := store.History(id)
		require.Len(t, history, 1)
		assert.False(t, history[0].Timestamp.IsZero())
	})

	t.Run("should return a copy callers cannot mutate", func(t *testing.T) {
		store := NewStore()
		id := store.Resolve("user-1")
		require.NoError(t, store.Append(id, chat.NewUserMessage("hello")))

		history := store.History(id)
		history[0].Content = "tampered"

		fresh := store.History(id)
		assert.Equal(t, "hello", fresh[0].Content)
	})

	t.Run("should return empty history for unknown sessions", func(t *testing.T) {
		store := NewStore()
		assert.Empty(t, store.History("no-such-session"))
	})

	t.Run("should reject invalid session ids", func(t *testing.T) {
		store := NewStore()
		assert.Error(t, store.Append("", chat.NewUserMessage("x")))
		assert.Error(t, store.Append("a/b", chat.NewUserMessage("x")))
	})
}

func TestClear(t *testing.T) {
	t.Run("should drop history and identity binding", func(t *testing.T) {
		store := NewStore()
		id := store.Resolve("user-1")
		require.NoError(t, store.Append(id, chat.NewUserMessage("hello")))

		store.Clear(id)

		assert.Empty(t, store.History(id))
		_, bound := store.Owner(id)
		assert.False(t, bound)
	})
}

func TestCleaner(t *testing.T) {
	t.Run("should evict only idle sessions", func(t *testing.T) {
		store := NewStore()
		past := time.Now().Add(-time.Hour)
		store.now = func() time.Time { return past }

		stale := store.Resolve("stale-user")
		require.NoError(t, store.Append(stale, chat.NewUserMessage("old")))

		store.now = time.Now
		fresh := store.Resolve("fresh-user")
		require.NoError(t, store.Append(fresh, chat.NewUserMessage("new")))

		cleaner := NewCleaner(store, DefaultIdleTimeout)
		evicted := cleaner.Sweep()

		assert.Equal(t, 1, evicted)
		assert.Empty(t, store.History(stale))
		assert.Len(t, store.History(fresh), 1)
	})
}
