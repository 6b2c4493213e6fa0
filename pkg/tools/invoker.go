package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Arash-Rostami/AI-Agent-sub000/internal/metrics"
)

// ErrUnknownTool is returned when a provider requests a tool that was never
// registered.
var ErrUnknownTool = errors.New("unknown tool")

// DefaultInvokeTimeout bounds a single tool execution.
const DefaultInvokeTimeout = 30 * time.Second

// Invoker dispatches provider function calls to registered tools.
type Invoker struct {
	registry *Registry
	timeout  time.Duration
}

// NewInvoker creates an invoker over registry.
func NewInvoker(registry *Registry, timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = DefaultInvokeTimeout
	}
	return &Invoker{registry: registry, timeout: timeout}
}

// NormalizeArgs coerces the argument shapes providers emit into a map.
// Providers send either a JSON object or a JSON-encoded string; a string
// that fails to parse degrades to {"raw": s} rather than erroring.
func NormalizeArgs(rawArgs interface{}) map[string]interface{} {
	switch v := rawArgs.(type) {
	case nil:
		return map[string]interface{}{}
	case map[string]interface{}:
		return v
	case string:
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			log.Warn().Str("args", v).Msg("Unparseable tool arguments, passing through raw")
			return map[string]interface{}{"raw": v}
		}
		return parsed
	case json.RawMessage:
		return NormalizeArgs(string(v))
	default:
		return map[string]interface{}{}
	}
}

// Invoke validates args against the tool's schema and runs its handler with
// a timeout. Unknown tools return ErrUnknownTool wrapped with the name.
func (inv *Invoker) Invoke(ctx context.Context, name string, rawArgs interface{}) (interface{}, error) {
	def, ok := inv.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	args := NormalizeArgs(rawArgs)
	if err := validateArgs(inv.registry.schema(name), args); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", name, err)
	}

	start := time.Now()
	timeoutCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	resultCh := make(chan interface{}, 1)
	errCh := make(chan error, 1)

	go func() {
		result, err := def.Handler(timeoutCtx, args)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		metrics.RecordToolExecution(name, time.Since(start), true)
		log.Debug().Str("tool", name).Dur("duration", time.Since(start)).Msg("Tool executed")
		return result, nil

	case err := <-errCh:
		metrics.RecordToolExecution(name, time.Since(start), false)
		log.Error().Str("tool", name).Err(err).Msg("Tool execution failed")
		return nil, err

	case <-timeoutCtx.Done():
		metrics.RecordToolExecution(name, time.Since(start), false)
		log.Error().Str("tool", name).Dur("timeout", inv.timeout).Msg("Tool execution timed out")
		return nil, fmt.Errorf("tool %s timed out after %v", name, inv.timeout)
	}
}
