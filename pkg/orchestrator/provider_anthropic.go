package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/chat"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicProvider implements Provider for Anthropic Claude.
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Complete makes one messages call.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := []anthropic.MessageParam{}

	for _, msg := range req.Messages {
		switch msg.Role {
		case chat.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))

		case chat.RoleAssistant:
			messages = append(messages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(msg.Content),
				},
			})

		case chat.RoleToolRequest:
			messages = append(messages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewToolUseBlock(toolCallID(msg.Name), msg.Args, msg.Name),
				},
			})

		case chat.RoleToolResponse:
			payloadJSON, err := json.Marshal(msg.Payload)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool payload: %w", err)
			}
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(toolCallID(msg.Name), string(payloadJSON), false),
			))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	if len(req.Tools) > 0 {
		toolParams := []anthropic.ToolUnionParam{}
		for _, spec := range req.Tools {
			toolParam := anthropic.ToolParam{
				Name:        spec.Name,
				Description: anthropic.String(spec.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: spec.InputSchema["properties"],
				},
			}
			if required, ok := spec.InputSchema["required"].([]string); ok {
				toolParam.InputSchema.Required = required
			}
			toolParams = append(toolParams, anthropic.ToolUnionParam{OfTool: &toolParam})
		}
		params.Tools = toolParams
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &ProviderError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
		}
		return nil, err
	}

	text := ""
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += b.Text

		case anthropic.ToolUseBlock:
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(b.JSON.Input.Raw()), &args); err != nil {
				return nil, fmt.Errorf("failed to parse tool input: %w", err)
			}
			return &Response{
				FunctionCall: &FunctionCall{ID: b.ID, Name: b.Name, Args: args},
			}, nil
		}
	}

	return &Response{Text: text}, nil
}
