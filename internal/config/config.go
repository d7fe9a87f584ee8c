// Package config provides configuration loading and structs for the karte server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. KARTE_SERVER_PORT.
const EnvPrefix = "KARTE"

const (
	// GenerationAttempts is the first backend call plus one retry.
	GenerationAttempts = 2
	// DefaultTemperature is used when generation.temperature is unset.
	DefaultTemperature float32 = 0.2
	// retryAllowance covers the pause between generation attempts.
	retryAllowance = time.Second
	// requestOverhead is the share of a request spent outside generation.
	requestOverhead = 10 * time.Second
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug" envconfig:"DEBUG"`
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Storage    StorageConfig    `yaml:"storage" envconfig:"STORAGE"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge" envconfig:"KNOWLEDGE"`
	Embedding  EmbeddingConfig  `yaml:"embedding" envconfig:"EMBEDDING"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" envconfig:"RETRIEVAL"`
	Generation GenerationConfig `yaml:"generation" envconfig:"GENERATION"`
	Safety     SafetyConfig     `yaml:"safety" envconfig:"SAFETY"`
	Watch      WatchConfig      `yaml:"watch" envconfig:"WATCH"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host" envconfig:"HOST"`
	Port           int           `yaml:"port" envconfig:"PORT"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// StorageConfig selects the document store.
type StorageConfig struct {
	Driver       string `yaml:"driver" envconfig:"DRIVER"` // sqlite or memory
	DatabasePath string `yaml:"database_path" envconfig:"DATABASE_PATH"`
}

// KnowledgeConfig locates tenant knowledge bases: one directory per tenant under Dir.
type KnowledgeConfig struct {
	Dir        string   `yaml:"dir" envconfig:"DIR"`
	Tenants    []string `yaml:"tenants" envconfig:"TENANTS"` // loaded at startup; others load on first use
	Extensions []string `yaml:"extensions" envconfig:"EXTENSIONS"`
}

// EmbeddingConfig selects and sizes the embedder.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" envconfig:"PROVIDER"` // hash or onnx
	Dimensions int    `yaml:"dimensions" envconfig:"DIMENSIONS"`
	ModelPath  string `yaml:"model_path" envconfig:"MODEL_PATH"`
	MaxTokens  int    `yaml:"max_tokens" envconfig:"MAX_TOKENS"`
	CacheSize  int    `yaml:"cache_size" envconfig:"CACHE_SIZE"`
}

// RetrievalConfig holds chunking and ranking settings.
type RetrievalConfig struct {
	ChunkSize int `yaml:"chunk_size" envconfig:"CHUNK_SIZE"` // words per chunk
	TopK      int `yaml:"top_k" envconfig:"TOP_K"`
}

// GenerationConfig configures the chat completion backend. With no APIKey the
// template generator is used.
type GenerationConfig struct {
	APIKey            string        `yaml:"api_key" envconfig:"API_KEY"`
	BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL"`
	Model             string        `yaml:"model" envconfig:"MODEL"`
	MaxTokens         int           `yaml:"max_tokens" envconfig:"MAX_TOKENS"`
	Temperature       *float32      `yaml:"temperature" envconfig:"TEMPERATURE"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	RequestsPerMinute int           `yaml:"requests_per_minute" envconfig:"REQUESTS_PER_MINUTE"`
}

// HasBackend reports whether a chat completion backend is configured.
func (g *GenerationConfig) HasBackend() bool {
	return g.APIKey != ""
}

// TemperatureOrDefault returns the sampling temperature; defaults to 0.2 when unset.
// An explicit 0 selects greedy sampling.
func (g *GenerationConfig) TemperatureOrDefault() float32 {
	if g.Temperature != nil {
		return *g.Temperature
	}
	return DefaultTemperature
}

// Budget is the longest one generation may take: every attempt running to Timeout
// plus the pause before the retry.
func (g *GenerationConfig) Budget() time.Duration {
	return GenerationAttempts*g.Timeout + retryAllowance
}

// SafetyConfig extends the built-in compliance phrase lists.
type SafetyConfig struct {
	ExtraMedications []string `yaml:"extra_medications" envconfig:"EXTRA_MEDICATIONS"`
	ExtraDiagnoses   []string `yaml:"extra_diagnosis_phrases" envconfig:"EXTRA_DIAGNOSIS_PHRASES"`
	ExtraConditions  []string `yaml:"extra_conditions" envconfig:"EXTRA_CONDITIONS"`
}

// WatchConfig controls automatic reindexing on knowledge-base changes.
type WatchConfig struct {
	Enabled  *bool         `yaml:"enabled" envconfig:"ENABLED"`
	Debounce time.Duration `yaml:"debounce" envconfig:"DEBOUNCE"`
}

// EnabledOrDefault returns whether to watch knowledge directories; defaults to true when unset.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
}

// Load builds the configuration from the YAML file at path (optional), then
// environment variables (KARTE_*, with a .env file loaded first if present),
// then defaults. Relative paths are resolved against the config file's directory.
func Load(path string) (*Config, error) {
	var cfg Config
	configDir := "."
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		configDir = filepath.Dir(path)
	}

	_ = godotenv.Load()
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Knowledge.Dir = expandPath(cfg.Knowledge.Dir, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}

	return &cfg, nil
}

// Validate rejects settings ApplyDefaults cannot repair.
func Validate(cfg *Config) error {
	switch cfg.Storage.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
	}
	switch cfg.Embedding.Provider {
	case "hash", "onnx":
	default:
		return fmt.Errorf("unknown embedding provider: %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Provider == "onnx" && cfg.Embedding.ModelPath == "" {
		return fmt.Errorf("embedding.model_path is required for the onnx provider")
	}
	if t := cfg.Generation.TemperatureOrDefault(); t < 0 || t > 1 {
		return fmt.Errorf("generation.temperature must be within [0, 1], got %v", t)
	}
	if budget := cfg.Generation.Budget(); cfg.Server.RequestTimeout < budget {
		return fmt.Errorf("server.request_timeout (%s) must cover the generation budget (%s)", cfg.Server.RequestTimeout, budget)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "~/" are relative to the
// home directory; other relative paths are relative to configDir.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	abs, err := filepath.Abs(filepath.Join(configDir, path))
	if err != nil {
		return filepath.Join(configDir, path)
	}
	return abs
}
