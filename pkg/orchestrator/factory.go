package orchestrator

import (
	"context"
	"fmt"
)

// ProviderFactory builds a Provider bound to a credential. Providers are
// per-request because the credential can change between turns (lease
// expiry, escalation).
type ProviderFactory interface {
	NewProvider(ctx context.Context, name, apiKey string) (Provider, error)
}

// SDKFactory creates providers over the real vendor SDKs.
type SDKFactory struct{}

// NewProvider creates a provider by name.
func (SDKFactory) NewProvider(ctx context.Context, name, apiKey string) (Provider, error) {
	switch name {
	case "gemini":
		return NewGeminiProvider(ctx, apiKey)
	case "openai":
		return NewOpenAIProvider(apiKey), nil
	case "anthropic":
		return NewAnthropicProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}
