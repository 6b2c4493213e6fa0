package config

import (
	"fmt"
	"strings"
)

var supportedProviders = []string{"gemini", "openai", "anthropic"}

// Validate checks the configuration for values the gateway cannot start with.
func (c *Config) Validate() error {
	if err := validateProvider(c.Provider); err != nil {
		return err
	}
	if len(c.Keys.Pool) == 0 {
		return fmt.Errorf("keys.pool must contain at least one API key")
	}
	if c.Keys.LeaseTTL <= 0 {
		return fmt.Errorf("keys.lease_ttl must be positive")
	}
	if err := validateState(c.State); err != nil {
		return err
	}
	if c.Retrieval.ChunkSize <= 0 {
		return fmt.Errorf("retrieval.chunk_size must be positive")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	if err := validateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

func validateProvider(p ProviderConfig) error {
	name := strings.ToLower(p.Name)
	found := false
	for _, known := range supportedProviders {
		if name == known {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("provider.name must be one of: %s", strings.Join(supportedProviders, ", "))
	}

	if p.Model == "" {
		return fmt.Errorf("provider.model cannot be empty")
	}
	if p.MaxTokens <= 0 {
		return fmt.Errorf("provider.max_tokens must be positive, got %d", p.MaxTokens)
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("provider.temperature must be between 0 and 2, got %f", p.Temperature)
	}
	if p.MaxHops <= 0 {
		return fmt.Errorf("provider.max_hops must be positive, got %d", p.MaxHops)
	}
	return nil
}

func validateState(s StateConfig) error {
	switch s.Backend {
	case "memory":
		return nil
	case "redis":
		if s.RedisAddr == "" {
			return fmt.Errorf("state.redis_addr is required when state.backend is redis")
		}
		return nil
	default:
		return fmt.Errorf("state.backend must be memory or redis, got %q", s.Backend)
	}
}

func validateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
}
