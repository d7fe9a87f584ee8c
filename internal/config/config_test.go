package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
generation:
  timeout: 10s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "test.db"), cfg.Storage.DatabasePath)
	assert.Equal(t, 10*time.Second, cfg.Generation.Timeout)
	assert.False(t, cfg.Debug, "debug should default to false when unset")
}

func TestLoad_debugTrue(t *testing.T) {
	path := writeConfig(t, "debug: true\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
}

func TestLoad_relativePathsResolveAgainstConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/db/documents.db"
knowledge:
  dir: "kb"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "data", "db", "documents.db"), cfg.Storage.DatabasePath)
	assert.Equal(t, filepath.Join(dir, "kb"), cfg.Knowledge.Dir)
}

func TestLoad_envOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
retrieval:
  top_k: 3
`)
	t.Setenv("KARTE_SERVER_PORT", "7000")
	t.Setenv("KARTE_GENERATION_API_KEY", "sk-test")
	t.Setenv("KARTE_KNOWLEDGE_TENANTS", "demo_hospital,city_clinic")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, []string{"demo_hospital", "city_clinic"}, cfg.Knowledge.Tenants)
	assert.True(t, cfg.Generation.HasBackend())
}

func TestLoad_openAIKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-fallback", cfg.Generation.APIKey)
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "server: [unclosed"},
		{"unknown driver", "storage:\n  driver: mongo\n"},
		{"onnx without model", "embedding:\n  provider: onnx\n"},
		{"temperature out of range", "generation:\n  temperature: 1.5\n"},
		{"request timeout below generation budget", "server:\n  request_timeout: 60s\ngeneration:\n  timeout: 30s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, 250, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 1500, cfg.Generation.MaxTokens)
	assert.InDelta(t, 0.2, cfg.Generation.TemperatureOrDefault(), 1e-6)
	assert.Equal(t, 30*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 71*time.Second, cfg.Server.RequestTimeout)
	assert.GreaterOrEqual(t, cfg.Server.RequestTimeout, cfg.Generation.Budget())
	assert.Equal(t, []string{".txt", ".md", ".pdf", ".docx", ".xlsx"}, cfg.Knowledge.Extensions)
	assert.False(t, cfg.Generation.HasBackend())
}

func TestLoad_zeroTemperatureIsKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, "generation:\n  temperature: 0\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Generation.Temperature)
	assert.Zero(t, cfg.Generation.TemperatureOrDefault())
}

func TestLoad_requestTimeoutCoversGeneration(t *testing.T) {
	cfg, err := Load(writeConfig(t, "generation:\n  timeout: 10s\n"))
	require.NoError(t, err)
	assert.Equal(t, 21*time.Second, cfg.Generation.Budget())
	assert.Equal(t, 31*time.Second, cfg.Server.RequestTimeout)

	cfg, err = Load(writeConfig(t, "server:\n  request_timeout: 2m\n"))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Server.RequestTimeout)
}

func TestWatchConfig_EnabledOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		assert.True(t, w.EnabledOrDefault())
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Enabled: &f}
		assert.False(t, w.EnabledOrDefault())
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{Driver: "memory", DatabasePath: "/tmp/db"},
	}
	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, loaded.Server.Port)
	assert.Equal(t, "memory", loaded.Storage.Driver)
}
