// Package orchestrator drives the multi-turn completion loop: build a
// provider request from history, execute any tool the model asks for, feed
// the result back, and repeat until the model answers in plain text.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/chat"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/tools"
)

// ErrHopLimit is returned when the model keeps requesting tools past the
// hop cap instead of answering.
var ErrHopLimit = errors.New("tool-call hop limit exceeded")

// ToolSpec describes one tool in provider-neutral form.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// Attachment is inline file data sent alongside the user's message.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Request is one provider call.
type Request struct {
	Model       string
	System      string
	Messages    []chat.Message
	Tools       []ToolSpec
	Attachments []Attachment
	MaxTokens   int
	Temperature float64
}

// FunctionCall is the model asking for a tool. Args keeps whatever shape
// the provider emitted (object or JSON-encoded string); the invoker
// normalizes it.
type FunctionCall struct {
	ID   string
	Name string
	Args interface{}
}

// Response is one provider answer: either text or a function call.
type Response struct {
	Text         string
	FunctionCall *FunctionCall
}

// Provider is one LLM backend bound to a credential.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Name() string
}

// ProviderError is an HTTP-level failure from a provider.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
}

// shouldEscalate reports whether err is a quota or leaked-key signal worth
// retrying on the privileged credential. Timeouts and transport errors are
// not ProviderErrors and never escalate.
func shouldEscalate(err error, leakedMarker string) bool {
	var perr *ProviderError
	if !errors.As(err, &perr) {
		return false
	}
	if perr.StatusCode == 429 {
		return true
	}
	return perr.StatusCode == 403 &&
		leakedMarker != "" &&
		strings.Contains(perr.Message, leakedMarker)
}

// SpecsFor converts registry definitions into provider-neutral tool specs.
func SpecsFor(registry *tools.Registry, names []string) []ToolSpec {
	defs := registry.Definitions(names)
	specs := make([]ToolSpec, 0, len(defs))

	for _, def := range defs {
		properties := make(map[string]interface{})
		required := []string{}
		for _, p := range def.Parameters {
			prop := map[string]interface{}{"type": p.Type}
			if p.Description != "" {
				prop["description"] = p.Description
			}
			properties[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}

		schema := map[string]interface{}{
			"type":       "object",
			"properties": properties,
		}
		if len(required) > 0 {
			schema["required"] = required
		}

		specs = append(specs, ToolSpec{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: schema,
		})
	}
	return specs
}
