package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupInvoker(t *testing.T) (*Invoker, *Registry) {
	t.Helper()

	registry := NewRegistry()
	require.NoError(t, registry.Register(Definition{
		Name:        "echo",
		Description: "Echo the input back.",
		Parameters: []Parameter{
			{Name: "text", Type: "string", Description: "Text to echo", Required: true},
		},
		Handler: func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			return args["text"], nil
		},
	}))

	return NewInvoker(registry, DefaultInvokeTimeout), registry
}

func TestNormalizeArgs(t *testing.T) {
	t.Run("should pass a map through unchanged", func(t *testing.T) {
		args := NormalizeArgs(map[string]interface{}{"location": "Tokyo"})
		assert.Equal(t, "Tokyo", args["location"])
	})

	t.Run("should decode a JSON string", func(t *testing.T) {
		args := NormalizeArgs(`{"location":"Tokyo","unit":"celsius"}`)
		assert.Equal(t, "Tokyo", args["location"])
		assert.Equal(t, "celsius", args["unit"])
	})

	t.Run("should degrade invalid JSON to a raw wrapper", func(t *testing.T) {
		args := NormalizeArgs("not json at all")
		assert.Equal(t, "not json at all", args["raw"])
	})

	t.Run("should treat nil as empty args", func(t *testing.T) {
		assert.Empty(t, NormalizeArgs(nil))
	})
}

func TestInvoke(t *testing.T) {
	t.Run("should run a registered tool", func(t *testing.T) {
		inv, _ := setupInvoker(t)

		result, err := inv.Invoke(context.Background(), "echo", map[string]interface{}{"text": "hello"})
		require.NoError(t, err)
		assert.Equal(t, "hello", result)
	})

	t.Run("should accept string-encoded args", func(t *testing.T) {
		inv, _ := setupInvoker(t)

		result, err := inv.Invoke(context.Background(), "echo", `{"text":"hello"}`)
		require.NoError(t, err)
		assert.Equal(t, "hello", result)
	})

	t.Run("should name the tool in unknown-tool errors", func(t *testing.T) {
		inv, _ := setupInvoker(t)

		_, err := inv.Invoke(context.Background(), "doesNotExist", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownTool)
		assert.Contains(t, err.Error(), "doesNotExist")
	})

	t.Run("should reject args that fail schema validation", func(t *testing.T) {
		inv, _ := setupInvoker(t)

		_, err := inv.Invoke(context.Background(), "echo", map[string]interface{}{})
		assert.Error(t, err)
	})

	t.Run("should surface handler errors", func(t *testing.T) {
		inv, registry := setupInvoker(t)
		handlerErr := errors.New("backend down")
		require.NoError(t, registry.Register(Definition{
			Name:        "failing",
			Description: "Always fails.",
			Handler: func(context.Context, map[string]interface{}) (interface{}, error) {
				return nil, handlerErr
			},
		}))

		_, err := inv.Invoke(context.Background(), "failing", nil)
		assert.ErrorIs(t, err, handlerErr)
	})

	t.Run("should time out a stuck handler", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(Definition{
			Name:        "sleepy",
			Description: "Never returns.",
			Handler: func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
				time.Sleep(2 * time.Second)
				return nil, nil
			},
		}))
		inv := NewInvoker(registry, 50*time.Millisecond)

		_, err := inv.Invoke(context.Background(), "sleepy", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out")
	})
}

func TestRegisterBuiltins(t *testing.T) {
	t.Run("should register only tools with backends", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, RegisterBuiltins(registry, Backends{
			Knowledge: knowledgeFunc(func(_ context.Context, q string) (string, error) {
				return "answer to " + q, nil
			}),
		}))

		names := registry.List()
		assert.Contains(t, names, ToolKnowledgeBase)
		assert.Contains(t, names, ToolCurrentTime)
		assert.NotContains(t, names, ToolWebSearch)
		assert.NotContains(t, names, ToolCurrentWeather)
	})

	t.Run("should use the configured timezone when the call passes none", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, RegisterBuiltins(registry, Backends{Timezone: "Asia/Tokyo"}))
		inv := NewInvoker(registry, DefaultInvokeTimeout)

		result, err := inv.Invoke(context.Background(), ToolCurrentTime, nil)
		require.NoError(t, err)
		assert.Contains(t, result, "JST")
	})

	t.Run("should let an explicit timezone argument win over the configured one", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, RegisterBuiltins(registry, Backends{Timezone: "Asia/Tokyo"}))
		inv := NewInvoker(registry, DefaultInvokeTimeout)

		result, err := inv.Invoke(context.Background(), ToolCurrentTime,
			map[string]interface{}{"timezone": "UTC"})
		require.NoError(t, err)
		assert.Contains(t, result, "UTC")
	})

	t.Run("should dispatch knowledge queries to the backend", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, RegisterBuiltins(registry, Backends{
			Knowledge: knowledgeFunc(func(_ context.Context, q string) (string, error) {
				return "answer to " + q, nil
			}),
		}))
		inv := NewInvoker(registry, DefaultInvokeTimeout)

		result, err := inv.Invoke(context.Background(), ToolKnowledgeBase,
			map[string]interface{}{"query": "refund policy"})
		require.NoError(t, err)
		assert.Equal(t, "answer to refund policy", result)
	})
}

type knowledgeFunc func(ctx context.Context, query string) (string, error)

func (f knowledgeFunc) Query(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}
