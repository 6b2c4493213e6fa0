package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Keys.Pool = []string{"sk-test-aaa", "sk-test-bbb"}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "gemini", cfg.Provider.Name)
	assert.Equal(t, 5, cfg.Provider.MaxHops)
	assert.Equal(t, 2*time.Hour, cfg.Keys.LeaseTTL)
	assert.Equal(t, 24*time.Hour, cfg.Permission.StateExpiry)
	assert.Equal(t, 2000, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, "memory", cfg.State.Backend)
	assert.True(t, cfg.Logging.Redaction)
}

func TestValidate(t *testing.T) {
	t.Run("should accept a populated default config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("should reject an empty key pool", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "keys.pool")
	})

	t.Run("should reject an unknown provider", func(t *testing.T) {
		cfg := validConfig()
		cfg.Provider.Name = "cohere"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider.name")
	})

	t.Run("should reject redis backend without an address", func(t *testing.T) {
		cfg := validConfig()
		cfg.State.Backend = "redis"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis_addr")
	})

	t.Run("should reject an out-of-range temperature", func(t *testing.T) {
		cfg := validConfig()
		cfg.Provider.Temperature = 3.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("should reject an unknown log level", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logging.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})
}

func TestLoader(t *testing.T) {
	t.Run("should return defaults when the file is missing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gateway.json")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "gemini", cfg.Provider.Name)
		assert.NotEmpty(t, cfg.Session.ArchivePath)
		assert.NotEmpty(t, cfg.Retrieval.IndexPath)
	})

	t.Run("should load values from a config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gateway.json")
		body := `{
			"provider": {"name": "openai", "model": "gpt-4o", "max_tokens": 2048},
			"keys": {"pool": ["sk-test-aaa"], "privileged": "sk-test-priv"},
			"data_dir": "/tmp/aigw-test"
		}`
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "openai", cfg.Provider.Name)
		assert.Equal(t, "gpt-4o", cfg.Provider.Model)
		assert.Equal(t, 2048, cfg.Provider.MaxTokens)
		assert.Equal(t, []string{"sk-test-aaa"}, cfg.Keys.Pool)
		assert.Equal(t, "sk-test-priv", cfg.Keys.Privileged)

		// Untouched sections keep their defaults.
		assert.Equal(t, 2*time.Hour, cfg.Keys.LeaseTTL)
		assert.Equal(t, filepath.Join("/tmp/aigw-test", "gateway.log"), cfg.Logging.File)
	})

	t.Run("should round-trip through Save", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gateway.json")
		loader := NewLoader(path)

		cfg := validConfig()
		cfg.Provider.Model = "gemini-2.5-pro"
		cfg.DataDir = "/tmp/aigw-roundtrip"
		require.NoError(t, loader.Save(cfg))

		loaded, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, "gemini-2.5-pro", loaded.Provider.Model)
		assert.Equal(t, cfg.Keys.Pool, loaded.Keys.Pool)
	})

	t.Run("should reject malformed JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gateway.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}
