package retrieval

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hyperjump/medrag/internal/config"
	"github.com/hyperjump/medrag/internal/embedding"
	"github.com/hyperjump/medrag/internal/storage"
	"github.com/hyperjump/medrag/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// tableEmbedder maps known texts to fixed vectors and counts calls.
type tableEmbedder struct {
	vectors map[string][]float32
	dims    int
	calls   atomic.Int32
	err     error
}

func (e *tableEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	v, ok := e.vectors[text]
	if !ok {
		return nil, errors.New("unknown text: " + text)
	}
	return v, nil
}

func (e *tableEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *tableEmbedder) Dimensions() int   { return e.dims }
func (e *tableEmbedder) ModelName() string { return "table" }
func (e *tableEmbedder) Close() error      { return nil }

var _ embedding.Embedder = (*tableEmbedder)(nil)

func newTestEngine(t *testing.T, cfg *config.RetrievalConfig) (*Engine, *tableEmbedder) {
	t.Helper()
	emb := &tableEmbedder{dims: 3, vectors: map[string][]float32{
		"Aspirin treats headache.":        {1, 0, 0},
		"Ibuprofen reduces inflammation.": {0, 2, 0},
		"Insulin regulates glucose.":      {0, 0, 1},
		"What reduces inflammation?":      {0.2, 1, 0},
		"Tell me a joke":                  {1, 1, 1},
		"Opposite of aspirin":             {-1, 0, 0},
	}}
	texts := []string{"Aspirin treats headache.", "Ibuprofen reduces inflammation.", "Insulin regulates glucose."}
	vectors, err := embedding.NormalizedBatch(context.Background(), emb, texts)
	require.NoError(t, err)
	emb.calls.Store(0)

	if cfg == nil {
		cfg = &config.RetrievalConfig{}
	}
	bundle := &storage.Bundle{Metadata: storage.Metadata{Model: "table", Count: 3, Dimensions: 3}, Texts: texts, Vectors: vectors}
	engine, err := NewEngine(context.Background(), bundle, emb, cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return engine, emb
}

func TestAnswer_ConfidentMatch(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	ans, err := engine.Answer(context.Background(), "  What reduces inflammation?\n")
	require.NoError(t, err)
	assert.Equal(t, "What reduces inflammation?", ans.Query)
	assert.Equal(t, "Ibuprofen reduces inflammation.", ans.Result)
	assert.True(t, ans.Confident)
	assert.InDelta(t, 0.9806, ans.Similarity, 1e-3)
	assert.Nil(t, ans.Matches)
}

func TestAnswer_ExactDocumentScoresOne(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	ans, err := engine.Answer(context.Background(), "Insulin regulates glucose.")
	require.NoError(t, err)
	assert.Equal(t, "Insulin regulates glucose.", ans.Result)
	assert.InDelta(t, 1.0, ans.Similarity, 1e-5)
}

func TestAnswer_BelowThresholdReturnsFallback(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	ans, err := engine.Answer(context.Background(), "Tell me a joke")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultFallbackMessage, ans.Result)
	assert.False(t, ans.Confident)
	assert.InDelta(t, 0.57735, ans.Similarity, 1e-4)
}

func TestAnswer_NegativeSimilarityIsNotClamped(t *testing.T) {
	cfg := &config.RetrievalConfig{TopK: 3}
	engine, _ := newTestEngine(t, cfg)

	ans, err := engine.Answer(context.Background(), "Opposite of aspirin")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultFallbackMessage, ans.Result)
	// Best hit is orthogonal (0); aspirin itself is last at -1.
	require.Len(t, ans.Matches, 3)
	assert.InDelta(t, 0, ans.Similarity, 1e-6)
	assert.InDelta(t, -1, ans.Matches[2].Similarity, 1e-6)
	assert.Equal(t, 0, ans.Matches[2].Position)
}

func TestAnswer_ThresholdIsInclusive(t *testing.T) {
	exact := 1.0
	engine, _ := newTestEngine(t, &config.RetrievalConfig{Threshold: &exact})

	ans, err := engine.Answer(context.Background(), "Aspirin treats headache.")
	require.NoError(t, err)
	assert.Equal(t, exact, ans.Similarity)
	assert.True(t, ans.Confident, "score equal to the threshold is accepted")

	zero := 0.0
	engine, _ = newTestEngine(t, &config.RetrievalConfig{Threshold: &zero})
	ans, err = engine.Answer(context.Background(), "Tell me a joke")
	require.NoError(t, err)
	assert.True(t, ans.Confident)
}

func TestAnswer_CustomFallbackAndTopK(t *testing.T) {
	engine, _ := newTestEngine(t, &config.RetrievalConfig{TopK: 2, FallbackMessage: "no idea"})

	ans, err := engine.Answer(context.Background(), "Tell me a joke")
	require.NoError(t, err)
	assert.Equal(t, "no idea", ans.Result)
	require.Len(t, ans.Matches, 2)
	assert.GreaterOrEqual(t, ans.Matches[0].Similarity, ans.Matches[1].Similarity)

	ans, err = engine.Answer(context.Background(), "What reduces inflammation?")
	require.NoError(t, err)
	assert.Equal(t, 1, ans.Matches[0].Position)
	assert.Equal(t, "Ibuprofen reduces inflammation.", ans.Matches[0].Text)
}

func TestAnswer_EmptyQuerySkipsEmbedding(t *testing.T) {
	engine, emb := newTestEngine(t, nil)

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := engine.Answer(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}
	assert.Equal(t, int32(0), emb.calls.Load())
}

func TestAnswer_ProviderError(t *testing.T) {
	engine, emb := newTestEngine(t, nil)
	emb.err = errors.New("model crashed")

	_, err := engine.Answer(context.Background(), "What reduces inflammation?")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyQuery)
}

func TestAnswer_Deterministic(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	first, err := engine.Answer(context.Background(), "What reduces inflammation?")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ans, err := engine.Answer(context.Background(), "What reduces inflammation?")
			if assert.NoError(t, err) {
				assert.Equal(t, first.Result, ans.Result)
				assert.Equal(t, first.Similarity, ans.Similarity)
			}
		}()
	}
	wg.Wait()
}

func TestNewEngine_Rejects(t *testing.T) {
	emb := &tableEmbedder{dims: 3}
	cfg := &config.RetrievalConfig{}
	ctx := context.Background()

	_, err := NewEngine(ctx, &storage.Bundle{}, emb, cfg)
	assert.ErrorIs(t, err, ErrEmptyIndex)

	_, err = NewEngine(ctx, nil, emb, cfg)
	assert.ErrorIs(t, err, ErrEmptyIndex)

	_, err = NewEngine(ctx, &storage.Bundle{Texts: []string{"a"}, Vectors: [][]float32{{1, 0}}}, emb, cfg)
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)

	_, err = NewEngine(ctx, &storage.Bundle{Texts: []string{"a", "b"}, Vectors: [][]float32{{1, 0, 0}}}, emb, cfg)
	assert.ErrorIs(t, err, storage.ErrCorruptBundle)

	_, err = NewEngine(ctx, &storage.Bundle{Texts: []string{"a"}, Vectors: [][]float32{{1, 0, 0}}}, emb, &config.RetrievalConfig{IndexType: "annoy"})
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	s := engine.Stats()
	assert.Equal(t, 3, s.Documents)
	assert.Equal(t, config.DefaultThreshold, s.Threshold)
	assert.Equal(t, 1, s.TopK)
	assert.Equal(t, "memory", s.IndexType)
	assert.Equal(t, "table", s.Metadata.Model)
}
