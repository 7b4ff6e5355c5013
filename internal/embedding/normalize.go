package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/medrag/internal/vector"
)

// Normalized embeds text and returns its unit-length vector. The indexer and
// the query path both go through here so documents and queries share one pipeline.
func Normalized(ctx context.Context, e Embedder, text string) ([]float32, error) {
	raw, err := e.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return checkAndNormalize(raw, e.Dimensions())
}

// NormalizedBatch embeds texts and returns one unit-length vector per text, in order.
// Errors name the offending position.
func NormalizedBatch(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	raw, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("provider returned %d embeddings for %d texts", len(raw), len(texts))
	}
	out := make([][]float32, len(raw))
	for i, v := range raw {
		n, err := checkAndNormalize(v, e.Dimensions())
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

func checkAndNormalize(v []float32, dimensions int) ([]float32, error) {
	if len(v) != dimensions {
		return nil, fmt.Errorf("%w: embedding has %d values, provider declares %d", vector.ErrDimensionMismatch, len(v), dimensions)
	}
	return vector.Normalize(v)
}
