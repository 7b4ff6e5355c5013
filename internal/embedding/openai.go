package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/medrag/pkg/utils"
)

// maxConcurrentRequests bounds in-flight requests during EmbedBatch.
const maxConcurrentRequests = 10

// OpenAIOptions configures NewOpenAIEmbedder.
type OpenAIOptions struct {
	Model             string
	BaseURL           string
	APIKey            string
	Dimensions        int
	RequestsPerSecond float64
	Burst             int
	CacheSize         int
	Logger            *zap.Logger
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client  *openai.Client
	model   string
	dim     int
	limiter *RateLimiter
	cache   *EmbeddingCache
	logger  *zap.Logger
}

// NewOpenAIEmbedder creates an embedder for opts.Model. When opts.Dimensions is
// zero it is derived from the model name.
func NewOpenAIEmbedder(opts OpenAIOptions) (*OpenAIEmbedder, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai embedder: API key not set")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	dim := opts.Dimensions
	if dim <= 0 {
		dim = 1536
		if opts.Model == "text-embedding-3-large" {
			dim = 3072
		}
	}

	return &OpenAIEmbedder{
		client:  openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		dim:     dim,
		limiter: NewRateLimiter(opts.RequestsPerSecond, opts.Burst),
		cache:   NewEmbeddingCache(opts.CacheSize),
		logger:  utils.LoggerOrNop(opts.Logger),
	}, nil
}

// APIKeyFromEnv reads the key from the named environment variable.
func APIKeyFromEnv(name string) (string, error) {
	key := os.Getenv(name)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", name)
	}
	return key, nil
}

// Embed returns the raw embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("cannot embed empty text")
	}
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			e.limiter.Backoff(5 * time.Second)
			e.logger.Warn("embedding provider rate limited", zap.String("model", e.model))
		}
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned from API")
	}

	src := resp.Data[0].Embedding
	v := make([]float32, len(src))
	for i := range src {
		v[i] = float32(src[i])
	}
	e.cache.Set(text, v)
	return v, nil
}

// EmbedBatch embeds texts concurrently, keeping input order. The first error cancels the rest.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	embeddings := make([][]float32, len(texts))
	sem := make(chan struct{}, maxConcurrentRequests)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for i := range texts {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			emb, err := e.Embed(ctx, texts[idx])
			if err != nil {
				errOnce.Do(func() {
					firstErr = fmt.Errorf("document %d: %w", idx, err)
					cancel()
				})
				return
			}
			embeddings[idx] = emb
		}(i)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dim
}

// ModelName returns the provider model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return "openai:" + e.model
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
