package permission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/chat"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/statestore"
)

func setupGate() *Gate {
	return NewGate(GateConfig{
		AllTools: []string{
			"getCurrentWeather", "getWeatherForecast", "getCurrentTime",
			"getWebSearch", "getPageContent", "getKnowledgeBase", "sendEmail",
		},
		WebTools:      []string{"getWebSearch", "getPageContent"},
		KnowledgeTool: "getKnowledgeBase",
		EmailTool:     "sendEmail",
	})
}

func TestAllowedTools(t *testing.T) {
	gate := setupGate()

	t.Run("should allow only the knowledge tool under bms", func(t *testing.T) {
		allowed := gate.AllowedTools(Mode{BMS: true, Restricted: true, WebSearchRequested: true})
		assert.Equal(t, []string{"getKnowledgeBase"}, allowed)
	})

	t.Run("should allow email under eteq", func(t *testing.T) {
		allowed := gate.AllowedTools(Mode{ETEQ: true})
		assert.Equal(t, []string{"sendEmail"}, allowed)
	})

	t.Run("should add web tools under eteq when requested", func(t *testing.T) {
		allowed := gate.AllowedTools(Mode{ETEQ: true, WebSearchRequested: true})
		assert.Equal(t, []string{"sendEmail", "getWebSearch", "getPageContent"}, allowed)
	})

	t.Run("should allow web tools only when restricted caller requested them", func(t *testing.T) {
		allowed := gate.AllowedTools(Mode{Restricted: true, WebSearchRequested: true})
		assert.Equal(t, []string{"getWebSearch", "getPageContent"}, allowed)
	})

	t.Run("should allow nothing when restricted without web search", func(t *testing.T) {
		assert.Empty(t, gate.AllowedTools(Mode{Restricted: true}))
	})

	t.Run("should allow everything but web tools for open callers", func(t *testing.T) {
		allowed := gate.AllowedTools(Mode{})
		assert.NotContains(t, allowed, "getWebSearch")
		assert.NotContains(t, allowed, "getPageContent")
		assert.Contains(t, allowed, "getCurrentWeather")
		assert.Contains(t, allowed, "sendEmail")
	})

	t.Run("should include web tools for open callers who requested them", func(t *testing.T) {
		allowed := gate.AllowedTools(Mode{WebSearchRequested: true})
		assert.Contains(t, allowed, "getWebSearch")
		assert.Len(t, allowed, 7)
	})
}

func TestIsToolAllowed(t *testing.T) {
	gate := setupGate()

	t.Run("should deny web search to restricted callers", func(t *testing.T) {
		assert.False(t, gate.IsToolAllowed("getWebSearch", Mode{Restricted: true}))
	})

	t.Run("should deny weather under bms", func(t *testing.T) {
		assert.False(t, gate.IsToolAllowed("getCurrentWeather", Mode{BMS: true}))
	})

	t.Run("should allow weather to open callers", func(t *testing.T) {
		assert.True(t, gate.IsToolAllowed("getCurrentWeather", Mode{}))
	})
}

func TestConsentScanner(t *testing.T) {
	scanner, err := NewConsentScanner(nil, nil)
	require.NoError(t, err)

	disclaimer := "I'm sorry, that question is outside my area of expertise. Shall I try anyway?"

	t.Run("should lift on adjacent disclaimer and affirmation", func(t *testing.T) {
		history := []chat.Message{
			chat.NewUserMessage("tell me about quantum biology"),
			chat.NewAssistantMessage(disclaimer),
			chat.NewUserMessage("Yes, go ahead!"),
		}
		assert.True(t, scanner.ShouldLiftRestriction(history))
	})

	t.Run("should lift on Persian affirmation", func(t *testing.T) {
		history := []chat.Message{
			chat.NewAssistantMessage("این سوال خارج از حوزه تخصص من است."),
			chat.NewUserMessage("بله لطفا"),
		}
		assert.True(t, scanner.ShouldLiftRestriction(history))
	})

	t.Run("should not lift when turns are not adjacent", func(t *testing.T) {
		history := []chat.Message{
			chat.NewAssistantMessage(disclaimer),
			chat.NewAssistantMessage("anything else I can help with?"),
			chat.NewUserMessage("yes"),
		}
		assert.False(t, scanner.ShouldLiftRestriction(history))
	})

	t.Run("should not lift when the order is reversed", func(t *testing.T) {
		history := []chat.Message{
			chat.NewUserMessage("yes"),
			chat.NewAssistantMessage(disclaimer),
		}
		assert.False(t, scanner.ShouldLiftRestriction(history))
	})

	t.Run("should not treat an affirmation inside a longer word as consent", func(t *testing.T) {
		history := []chat.Message{
			chat.NewAssistantMessage(disclaimer),
			chat.NewUserMessage("I said yesterday that I don't want that"),
		}
		assert.False(t, scanner.ShouldLiftRestriction(history))
	})

	t.Run("should match affirmations case-insensitively", func(t *testing.T) {
		history := []chat.Message{
			chat.NewAssistantMessage(disclaimer),
			chat.NewUserMessage("OKAY"),
		}
		assert.True(t, scanner.ShouldLiftRestriction(history))
	})
}

func TestStateStore(t *testing.T) {
	t.Run("should remember and look up a grant", func(t *testing.T) {
		store := NewStateStore(statestore.NewMemoryStore(), DefaultStateExpiry)

		require.NoError(t, store.Remember(context.Background(), "10.0.0.1", RestrictedState{Restricted: true, BMS: true}))

		state, ok := store.Lookup(context.Background(), "10.0.0.1")
		require.True(t, ok)
		assert.True(t, state.Restricted)
		assert.True(t, state.BMS)
	})

	t.Run("should forget grants after expiry", func(t *testing.T) {
		store := NewStateStore(statestore.NewMemoryStore(), DefaultStateExpiry)
		base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		store.now = func() time.Time { return base }

		require.NoError(t, store.Remember(context.Background(), "10.0.0.1", RestrictedState{Restricted: true}))

		store.now = func() time.Time { return base.Add(DefaultStateExpiry) }
		_, ok := store.Lookup(context.Background(), "10.0.0.1")
		assert.False(t, ok)
	})

	t.Run("should miss unknown callers", func(t *testing.T) {
		store := NewStateStore(statestore.NewMemoryStore(), DefaultStateExpiry)
		_, ok := store.Lookup(context.Background(), "192.168.1.1")
		assert.False(t, ok)
	})
}
