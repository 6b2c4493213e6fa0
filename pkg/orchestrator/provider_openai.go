package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/chat"
)

// OpenAIProvider implements Provider for OpenAI chat completions.
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete makes one chat completion call.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}

	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case chat.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))

		case chat.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))

		case chat.RoleToolRequest:
			argsJSON, err := json.Marshal(msg.Args)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
			}
			assistantMsg := openai.ChatCompletionMessage{
				Role: "assistant",
				ToolCalls: []openai.ChatCompletionMessageToolCall{
					{
						ID:   toolCallID(msg.Name),
						Type: "function",
						Function: openai.ChatCompletionMessageToolCallFunction{
							Name:      msg.Name,
							Arguments: string(argsJSON),
						},
					},
				},
			}
			messages = append(messages, assistantMsg.ToParam())

		case chat.RoleToolResponse:
			payloadJSON, err := json.Marshal(msg.Payload)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool payload: %w", err)
			}
			messages = append(messages, openai.ToolMessage(toolCallID(msg.Name), string(payloadJSON)))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	if len(req.Tools) > 0 {
		toolParams := []openai.ChatCompletionToolParam{}
		for _, spec := range req.Tools {
			toolParams = append(toolParams, openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        spec.Name,
					Description: openai.String(spec.Description),
					Parameters:  openai.FunctionParameters(spec.InputSchema),
				},
			})
		}
		params.Tools = toolParams
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &ProviderError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
		}
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) > 0 {
		tc := choice.Message.ToolCalls[0]
		// Arguments stay a raw JSON string here; the invoker normalizes.
		return &Response{
			FunctionCall: &FunctionCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: tc.Function.Arguments,
			},
		}, nil
	}

	return &Response{Text: choice.Message.Content}, nil
}

// toolCallID derives a stable call ID from the tool name. The history model
// carries one in-flight call per tool name, so the name suffices.
func toolCallID(name string) string {
	return "call_" + name
}
