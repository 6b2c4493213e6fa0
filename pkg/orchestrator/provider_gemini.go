package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/chat"
)

// GeminiProvider implements Provider over the Gemini API.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a Gemini provider.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Complete makes one generateContent call.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	contents := p.buildContents(req)

	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}

	if len(req.Tools) > 0 {
		declarations := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, spec := range req.Tools {
			declarations = append(declarations, &genai.FunctionDeclaration{
				Name:                 spec.Name,
				Description:          spec.Description,
				ParametersJsonSchema: spec.InputSchema,
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &ProviderError{StatusCode: apiErr.Code, Message: apiErr.Message}
		}
		return nil, err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates returned")
	}

	text := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			return &Response{
				FunctionCall: &FunctionCall{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				},
			}, nil
		}
		text += part.Text
	}

	return &Response{Text: text}, nil
}

// buildContents translates history into Gemini turns. Tool requests become
// model function-call parts, tool responses become user function-response
// parts. Attachments ride on the final user turn as inline blobs.
func (p *GeminiProvider) buildContents(req Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.Messages))
	lastUser := -1

	for _, msg := range req.Messages {
		switch msg.Role {
		case chat.RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
			lastUser = len(contents) - 1

		case chat.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))

		case chat.RoleToolRequest:
			contents = append(contents, &genai.Content{
				Role: genai.RoleModel,
				Parts: []*genai.Part{
					{FunctionCall: &genai.FunctionCall{Name: msg.Name, Args: msg.Args}},
				},
			})

		case chat.RoleToolResponse:
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{
					{FunctionResponse: &genai.FunctionResponse{Name: msg.Name, Response: msg.Payload}},
				},
			})
		}
	}

	if lastUser >= 0 {
		for _, att := range req.Attachments {
			contents[lastUser].Parts = append(contents[lastUser].Parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: att.MIMEType, Data: att.Data},
			})
		}
	}

	return contents
}
