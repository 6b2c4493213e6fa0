// Package config defines the gateway's configuration model and its JSON file
// plus environment loading.
package config

import (
	"time"
)

// Config represents the full gateway configuration.
type Config struct {
	// Provider
	Provider ProviderConfig `json:"provider" mapstructure:"provider"`

	// Credentials
	Keys KeysConfig `json:"keys" mapstructure:"keys"`

	// State storage
	State StateConfig `json:"state" mapstructure:"state"`

	// Sessions
	Session SessionConfig `json:"session" mapstructure:"session"`

	// Retrieval
	Retrieval RetrievalConfig `json:"retrieval" mapstructure:"retrieval"`

	// Tool backends
	Tools ToolsConfig `json:"tools" mapstructure:"tools"`

	// Permission gating
	Permission PermissionConfig `json:"permission" mapstructure:"permission"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Maintenance cadences
	Maintenance MaintenanceConfig `json:"maintenance" mapstructure:"maintenance"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ProviderConfig selects the LLM provider and completion parameters.
type ProviderConfig struct {
	Name        string  `json:"name" mapstructure:"name"` // gemini, openai, anthropic
	Model       string  `json:"model" mapstructure:"model"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxHops     int     `json:"max_hops" mapstructure:"max_hops"`
}

// KeysConfig holds the rotation pool and escalation settings.
type KeysConfig struct {
	Pool            []string      `json:"pool" mapstructure:"pool"`
	Privileged      string        `json:"privileged" mapstructure:"privileged"`
	LeaseTTL        time.Duration `json:"lease_ttl" mapstructure:"lease_ttl"`
	LeakedKeyMarker string        `json:"leaked_key_marker" mapstructure:"leaked_key_marker"`
}

// StateConfig selects where leases and restricted-mode grants persist.
type StateConfig struct {
	Backend   string `json:"backend" mapstructure:"backend"` // memory, redis
	RedisAddr string `json:"redis_addr" mapstructure:"redis_addr"`
	RedisDB   int    `json:"redis_db" mapstructure:"redis_db"`
}

// SessionConfig holds session-store and archiving settings.
type SessionConfig struct {
	IdleTimeout time.Duration `json:"idle_timeout" mapstructure:"idle_timeout"`
	ArchivePath string        `json:"archive_path" mapstructure:"archive_path"`
}

// RetrievalConfig holds knowledge-base settings.
type RetrievalConfig struct {
	DocsDir   string          `json:"docs_dir" mapstructure:"docs_dir"`
	IndexPath string          `json:"index_path" mapstructure:"index_path"`
	Embedding EmbeddingConfig `json:"embedding" mapstructure:"embedding"`
	ChunkSize int             `json:"chunk_size" mapstructure:"chunk_size"`
	TopK      int             `json:"top_k" mapstructure:"top_k"`
	Watch     bool            `json:"watch" mapstructure:"watch"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider  string `json:"provider" mapstructure:"provider"` // gemini, openai
	Model     string `json:"model" mapstructure:"model"`
	APIKey    string `json:"api_key" mapstructure:"api_key"`
	Dimension int    `json:"dimension" mapstructure:"dimension"`
}

// ToolsConfig holds credentials for the built-in tool backends. Empty keys
// leave the corresponding tools unregistered.
type ToolsConfig struct {
	WeatherAPIKey string     `json:"weather_api_key" mapstructure:"weather_api_key"`
	SearchAPIKey  string     `json:"search_api_key" mapstructure:"search_api_key"`
	Timezone      string     `json:"timezone" mapstructure:"timezone"`
	Mail          MailConfig `json:"mail" mapstructure:"mail"`
}

// MailConfig holds SMTP settings for the send-email tool.
type MailConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	From     string `json:"from" mapstructure:"from"`
}

// PermissionConfig holds restricted-mode settings.
type PermissionConfig struct {
	StateExpiry  time.Duration `json:"state_expiry" mapstructure:"state_expiry"`
	Disclaimers  []string      `json:"disclaimers" mapstructure:"disclaimers"`
	Affirmations []string      `json:"affirmations" mapstructure:"affirmations"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds the Prometheus listener settings.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// MaintenanceConfig holds the background job cadences.
type MaintenanceConfig struct {
	LeasePrune   time.Duration `json:"lease_prune" mapstructure:"lease_prune"`
	SessionSweep time.Duration `json:"session_sweep" mapstructure:"session_sweep"`
	IndexResync  time.Duration `json:"index_resync" mapstructure:"index_resync"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:        "gemini",
			Model:       "gemini-2.0-flash",
			MaxTokens:   4096,
			Temperature: 0.7,
			MaxHops:     5,
		},
		Keys: KeysConfig{
			LeaseTTL:        2 * time.Hour,
			LeakedKeyMarker: "public repository",
		},
		State: StateConfig{
			Backend: "memory",
		},
		Session: SessionConfig{
			IdleTimeout: 30 * time.Minute,
		},
		Retrieval: RetrievalConfig{
			Embedding: EmbeddingConfig{
				Provider: "gemini",
				Model:    "text-embedding-004",
			},
			ChunkSize: 2000,
			TopK:      3,
			Watch:     true,
		},
		Tools: ToolsConfig{
			Timezone: "Asia/Tehran",
		},
		Permission: PermissionConfig{
			StateExpiry: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9090",
		},
		Maintenance: MaintenanceConfig{
			LeasePrune:   15 * time.Minute,
			SessionSweep: 5 * time.Minute,
			IndexResync:  time.Minute,
		},
	}
}
