package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/chat"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/keyring"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/orchestrator"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/permission"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/session"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/statestore"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/tools"
)

// scriptedProvider feeds canned responses to the orchestrator under test.
type scriptedProvider struct {
	script []*orchestrator.Response
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, _ orchestrator.Request) (*orchestrator.Response, error) {
	if len(p.script) == 0 {
		return nil, errors.New("provider unavailable")
	}
	next := p.script[0]
	p.script = p.script[1:]
	return next, nil
}

type scriptedFactory struct {
	provider *scriptedProvider
}

func (f *scriptedFactory) NewProvider(context.Context, string, string) (orchestrator.Provider, error) {
	return f.provider, nil
}

func setupService(t *testing.T, script ...*orchestrator.Response) (*Service, *session.Store) {
	t.Helper()

	rotator, err := keyring.New(keyring.Config{
		Pool:   []keyring.Credential{{ID: "key-a", Key: "sk-aaa"}},
		Store:  statestore.NewMemoryStore(),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	registry := tools.NewRegistry()
	require.NoError(t, tools.RegisterBuiltins(registry, tools.Backends{}))

	orch, err := orchestrator.New(orchestrator.Config{
		Provider: "scripted",
		Model:    "test-model",
		Gate: permission.NewGate(permission.GateConfig{
			AllTools: tools.AllToolNames(),
			WebTools: tools.WebToolNames(),
		}),
		Registry: registry,
		Invoker:  tools.NewInvoker(registry, 0),
		Rotator:  rotator,
		Factory:  &scriptedFactory{provider: &scriptedProvider{script: script}},
	})
	require.NoError(t, err)

	consent, err := permission.NewConsentScanner(nil, nil)
	require.NoError(t, err)

	sessions := session.NewStore()
	svc, err := New(Config{
		Orchestrator: orch,
		Sessions:     sessions,
		Consent:      consent,
	})
	require.NoError(t, err)

	return svc, sessions
}

func TestAsk(t *testing.T) {
	t.Run("should answer and persist the turn", func(t *testing.T) {
		svc, sessions := setupService(t, &orchestrator.Response{Text: "hi there"})

		reply, err := svc.Ask(context.Background(), AskParams{
			Identity: "user-1",
			Message:  "hello",
		})
		require.NoError(t, err)
		assert.Equal(t, "hi there", reply.Text)
		require.NotEmpty(t, reply.SessionID)

		history := sessions.History(reply.SessionID)
		require.Len(t, history, 2)
		assert.Equal(t, chat.RoleUser, history[0].Role)
		assert.Equal(t, "hello", history[0].Content)
		assert.Equal(t, chat.RoleAssistant, history[1].Role)
	})

	t.Run("should keep one session across turns for an identity", func(t *testing.T) {
		svc, sessions := setupService(t,
			&orchestrator.Response{Text: "first"},
			&orchestrator.Response{Text: "second"},
		)

		r1, err := svc.Ask(context.Background(), AskParams{Identity: "user-1", Message: "one"})
		require.NoError(t, err)
		r2, err := svc.Ask(context.Background(), AskParams{Identity: "user-1", Message: "two"})
		require.NoError(t, err)

		assert.Equal(t, r1.SessionID, r2.SessionID)
		assert.Len(t, sessions.History(r1.SessionID), 4)
	})

	t.Run("should answer an empty message without a provider call", func(t *testing.T) {
		svc, _ := setupService(t)

		reply, err := svc.Ask(context.Background(), AskParams{Identity: "user-1", Message: "   "})
		require.NoError(t, err)
		assert.Equal(t, DefaultEmptyPromptText, reply.Text)
	})

	t.Run("should persist the tool trace between user and assistant turns", func(t *testing.T) {
		svc, sessions := setupService(t,
			&orchestrator.Response{FunctionCall: &orchestrator.FunctionCall{
				Name: tools.ToolCurrentTime,
				Args: map[string]interface{}{"timezone": "UTC"},
			}},
			&orchestrator.Response{Text: "it is noon"},
		)

		reply, err := svc.Ask(context.Background(), AskParams{Identity: "user-1", Message: "what time is it?"})
		require.NoError(t, err)
		assert.Equal(t, "it is noon", reply.Text)

		history := sessions.History(reply.SessionID)
		require.Len(t, history, 4)
		assert.Equal(t, chat.RoleToolRequest, history[1].Role)
		assert.Equal(t, chat.RoleToolResponse, history[2].Role)
	})

	t.Run("should lift restriction for a consenting turn", func(t *testing.T) {
		svc, sessions := setupService(t,
			&orchestrator.Response{Text: "full answer"},
		)

		sessionID := svc.NewSession("user-1")
		require.NoError(t, sessions.Append(sessionID,
			chat.NewUserMessage("explain quantum biology"),
			chat.NewAssistantMessage("That is outside my area of expertise. Want me to try anyway?"),
		))

		reply, err := svc.Ask(context.Background(), AskParams{
			Identity:  "user-1",
			SessionID: sessionID,
			Message:   "yes please",
			Mode:      permission.Mode{Restricted: true},
		})
		require.NoError(t, err)
		assert.Equal(t, "full answer", reply.Text)
	})

	t.Run("should return the fallback text when orchestration fails", func(t *testing.T) {
		svc, _ := setupService(t) // empty script makes the provider error

		reply, err := svc.Ask(context.Background(), AskParams{Identity: "user-1", Message: "hello"})
		require.NoError(t, err)
		assert.Equal(t, DefaultFallbackText, reply.Text)
	})
}

func TestSessionOps(t *testing.T) {
	t.Run("should mint distinct sessions on demand", func(t *testing.T) {
		svc, _ := setupService(t)

		a := svc.NewSession("user-1")
		b := svc.NewSession("user-1")
		assert.NotEqual(t, a, b)
	})

	t.Run("should clear a session", func(t *testing.T) {
		svc, sessions := setupService(t, &orchestrator.Response{Text: "hi"})

		reply, err := svc.Ask(context.Background(), AskParams{Identity: "user-1", Message: "hello"})
		require.NoError(t, err)

		svc.ClearSession(reply.SessionID)
		assert.Empty(t, sessions.History(reply.SessionID))
	})
}
