// Package embedding turns text into dense vectors through a pluggable provider
// (ONNX BERT, OpenAI-compatible API, or a deterministic mock).
package embedding

import "context"

// Embedder produces vector embeddings for text. Returned vectors are raw
// model output; callers normalize them with Normalized or NormalizedBatch.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Close() error
}
