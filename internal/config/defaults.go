package config

const (
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"

	// DefaultThreshold is the minimum similarity for returning a document.
	DefaultThreshold = 0.7
	// DefaultFallbackMessage is returned when no document clears the threshold.
	DefaultFallbackMessage = "I'm not sure how to respond to that. Please ask a medical question."
	// DefaultModelName is the embedding model used when none is configured.
	DefaultModelName = "NeuML/pubmedbert-base-embeddings"
)

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Frontend.Host == "" {
		cfg.Frontend.Host = "0.0.0.0"
	}
	if cfg.Frontend.Port == 0 {
		cfg.Frontend.Port = 8080
	}
	if cfg.Frontend.RAGEndpoint == "" {
		cfg.Frontend.RAGEndpoint = "http://rag-service:80/query"
	}
	if cfg.Frontend.Timeout == "" {
		cfg.Frontend.Timeout = "5s"
	}
	if cfg.Storage.BundlePath == "" {
		cfg.Storage.BundlePath = "/usr/local/var/medrag/data/bundle.db"
	}
	if cfg.Corpus.Paths == nil {
		cfg.Corpus.Paths = []string{"/usr/local/var/medrag/data/documents.txt"}
	}
	if cfg.Corpus.WatchDebounce == "" {
		cfg.Corpus.WatchDebounce = "400ms"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderONNX
	}
	if cfg.Embedding.ModelName == "" {
		cfg.Embedding.ModelName = DefaultModelName
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/medrag/data/models/pubmedbert-base-embeddings.onnx"
	}
	if cfg.Embedding.VocabPath == "" {
		cfg.Embedding.VocabPath = "/usr/local/var/medrag/data/models/vocab.txt"
	}
	// OpenAI dimensions follow the model when unset.
	if cfg.Embedding.Dimensions == 0 && cfg.Embedding.Provider != ProviderOpenAI {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 512
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Lowercase == nil {
		t := true
		cfg.Embedding.Lowercase = &t
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "last_hidden_state"
	}
	if cfg.Embedding.OpenAI.Model == "" {
		cfg.Embedding.OpenAI.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.OpenAI.APIKeyEnv == "" {
		cfg.Embedding.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.OpenAI.RequestsPerSecond == 0 {
		cfg.Embedding.OpenAI.RequestsPerSecond = 5
	}
	if cfg.Embedding.OpenAI.Burst == 0 {
		cfg.Embedding.OpenAI.Burst = 10
	}
	if cfg.Retrieval.Threshold == nil {
		v := DefaultThreshold
		cfg.Retrieval.Threshold = &v
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 1
	}
	if cfg.Retrieval.FallbackMessage == "" {
		cfg.Retrieval.FallbackMessage = DefaultFallbackMessage
	}
	if cfg.Retrieval.IndexType == "" {
		cfg.Retrieval.IndexType = "memory"
	}
}
