package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/medrag/internal/config"
)

// NewEmbedder builds the provider selected by cfg.Provider.
func NewEmbedder(cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderONNX, "":
		e, err := NewONNXEmbedder(ONNXOptions{
			ModelName:         cfg.ModelName,
			ModelPath:         cfg.ModelPath,
			VocabPath:         cfg.VocabPath,
			SharedLibraryPath: cfg.SharedLibraryPath,
			OutputName:        cfg.OutputName,
			Dimensions:        cfg.Dimensions,
			MaxTokens:         cfg.MaxTokens,
			CacheSize:         cfg.CacheSize,
			Lowercase:         cfg.LowercaseOrDefault(),
			Logger:            logger,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.ProviderOpenAI:
		key, err := APIKeyFromEnv(cfg.OpenAI.APIKeyEnv)
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		e, err := NewOpenAIEmbedder(OpenAIOptions{
			Model:             cfg.OpenAI.Model,
			BaseURL:           cfg.OpenAI.BaseURL,
			APIKey:            key,
			Dimensions:        cfg.Dimensions,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
			Burst:             cfg.OpenAI.Burst,
			CacheSize:         cfg.CacheSize,
			Logger:            logger,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.ProviderMock:
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, openai, mock)", cfg.Provider)
	}
}
