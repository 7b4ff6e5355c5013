// Package config provides configuration loading and structs for the medrag indexer,
// query service and front-end.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Frontend  FrontendConfig  `yaml:"frontend"`
	Storage   StorageConfig   `yaml:"storage"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// ServerConfig holds query service HTTP settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// FrontendConfig holds the relay UI settings.
type FrontendConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	RAGEndpoint string `yaml:"rag_endpoint"`
	Timeout     string `yaml:"timeout"`
}

// TimeoutDuration parses Timeout.
func (f *FrontendConfig) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid frontend.timeout %q: %w", f.Timeout, err)
	}
	return d, nil
}

// StorageConfig holds the bundle location.
type StorageConfig struct {
	BundlePath string `yaml:"bundle_path"`
}

// CorpusConfig lists the corpus files fed to the indexer, in order.
type CorpusConfig struct {
	Paths         []string `yaml:"paths"`
	WatchDebounce string   `yaml:"watch_debounce"`
}

// DebounceDuration parses WatchDebounce.
func (c *CorpusConfig) DebounceDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.WatchDebounce)
	if err != nil {
		return 0, fmt.Errorf("invalid corpus.watch_debounce %q: %w", c.WatchDebounce, err)
	}
	return d, nil
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider          string       `yaml:"provider"` // onnx, openai or mock
	ModelName         string       `yaml:"model_name"`
	ModelPath         string       `yaml:"model_path"`
	VocabPath         string       `yaml:"vocab_path"`
	SharedLibraryPath string       `yaml:"shared_library_path"`
	Dimensions        int          `yaml:"dimensions"`
	MaxTokens         int          `yaml:"max_tokens"`
	CacheSize         int          `yaml:"cache_size"`
	Lowercase         *bool        `yaml:"lowercase"`
	OutputName        string       `yaml:"output_name"`
	OpenAI            OpenAIConfig `yaml:"openai"`
}

// LowercaseOrDefault returns whether the tokenizer lowercases input; defaults to true when unset.
func (e *EmbeddingConfig) LowercaseOrDefault() bool {
	if e.Lowercase != nil {
		return *e.Lowercase
	}
	return true
}

// OpenAIConfig holds settings for an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// RetrievalConfig holds the decision rule knobs of the query service.
type RetrievalConfig struct {
	Threshold       *float64 `yaml:"threshold"`
	TopK            int      `yaml:"top_k"`
	FallbackMessage string   `yaml:"fallback_message"`
	IndexType       string   `yaml:"index_type"`
}

// ThresholdOrDefault returns the similarity threshold; defaults to DefaultThreshold when unset.
func (r *RetrievalConfig) ThresholdOrDefault() float64 {
	if r.Threshold != nil {
		return *r.Threshold
	}
	return DefaultThreshold
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.BundlePath = expandPath(cfg.Storage.BundlePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.VocabPath = expandPath(cfg.Embedding.VocabPath, configDir)
	if cfg.Embedding.SharedLibraryPath != "" {
		cfg.Embedding.SharedLibraryPath = expandPath(cfg.Embedding.SharedLibraryPath, configDir)
	}
	for i := range cfg.Corpus.Paths {
		cfg.Corpus.Paths[i] = expandPath(cfg.Corpus.Paths[i], configDir)
	}

	return &cfg, nil
}

// Validate checks values that defaults cannot repair.
func Validate(cfg *Config) error {
	switch cfg.Embedding.Provider {
	case ProviderONNX, ProviderOpenAI, ProviderMock:
	default:
		return fmt.Errorf("unknown embedding provider %q (supported: onnx, openai, mock)", cfg.Embedding.Provider)
	}
	if cfg.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval.top_k must be at least 1, got %d", cfg.Retrieval.TopK)
	}
	if _, err := cfg.Frontend.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := cfg.Corpus.DebounceDuration(); err != nil {
		return err
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
