// Package retrieval answers queries against a loaded bundle: embed, search
// the flat inner-product index, and apply the similarity threshold.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/medrag/internal/config"
	"github.com/hyperjump/medrag/internal/embedding"
	"github.com/hyperjump/medrag/internal/storage"
	"github.com/hyperjump/medrag/internal/vector"
	"github.com/hyperjump/medrag/pkg/utils"
	"go.uber.org/zap"
)

var (
	// ErrEmptyQuery is returned for a query that is empty after trimming.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrEmptyIndex is returned when an engine is built from a bundle with no documents.
	ErrEmptyIndex = errors.New("index has no documents")
)

// Engine holds the immutable retrieval state of the query service. It is
// built once at startup and is safe for concurrent use.
type Engine struct {
	texts     []string
	index     vector.VectorIndex
	embedder  embedding.Embedder
	metadata  storage.Metadata
	threshold float64
	topK      int
	fallback  string
	logger    *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for per-query debug output.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// Match is one search hit.
type Match struct {
	Position   int
	Text       string
	Similarity float64
}

// Answer is the outcome of a query. Result is the best document text, or the
// fallback message when the best similarity is below the threshold.
type Answer struct {
	Query      string
	Result     string
	Similarity float64
	// Confident is true when Result is a document rather than the fallback.
	Confident bool
	// Matches lists every hit when more than one was requested.
	Matches []Match
}

// Stats summarizes the loaded bundle and decision rule.
type Stats struct {
	Metadata  storage.Metadata
	Documents int
	Threshold float64
	TopK      int
	IndexType string
}

// NewEngine builds the similarity index from bundle and returns an engine
// that embeds queries with embedder. The bundle's vectors must have the
// embedder's dimension.
func NewEngine(ctx context.Context, bundle *storage.Bundle, embedder embedding.Embedder, cfg *config.RetrievalConfig, opts ...EngineOption) (*Engine, error) {
	if bundle == nil || len(bundle.Texts) == 0 {
		return nil, ErrEmptyIndex
	}
	if len(bundle.Texts) != len(bundle.Vectors) {
		return nil, fmt.Errorf("%w: %d texts but %d vectors", storage.ErrCorruptBundle, len(bundle.Texts), len(bundle.Vectors))
	}
	dims := len(bundle.Vectors[0])
	if dims != embedder.Dimensions() {
		return nil, fmt.Errorf("%w: bundle has %d dimensions, embedder produces %d", vector.ErrDimensionMismatch, dims, embedder.Dimensions())
	}

	e := &Engine{
		texts:     bundle.Texts,
		embedder:  embedder,
		metadata:  bundle.Metadata,
		threshold: cfg.ThresholdOrDefault(),
		topK:      cfg.TopK,
		fallback:  cfg.FallbackMessage,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.LoggerOrNop(e.logger)
	if e.topK < 1 {
		e.topK = 1
	}
	if e.fallback == "" {
		e.fallback = config.DefaultFallbackMessage
	}

	index, err := vector.Build(ctx, cfg.IndexType, dims, bundle.Vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	if index.Size() != len(bundle.Texts) {
		_ = index.Close()
		return nil, fmt.Errorf("%w: index holds %d vectors for %d documents", storage.ErrCorruptBundle, index.Size(), len(bundle.Texts))
	}
	e.index = index

	if m := bundle.Metadata.Model; m != "" && m != embedder.ModelName() {
		e.logger.Warn("bundle was built with a different model",
			zap.String("bundle_model", m),
			zap.String("embedder_model", embedder.ModelName()))
	}
	return e, nil
}

// Answer embeds the trimmed query, finds the most similar document and
// applies the threshold: a similarity strictly below it yields the fallback
// message together with the actual score.
func (e *Engine) Answer(ctx context.Context, query string) (*Answer, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	qv, err := embedding.Normalized(ctx, e.embedder, q)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	hits, err := e.index.Search(ctx, qv, e.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(hits) == 0 {
		return nil, ErrEmptyIndex
	}

	best := hits[0]
	ans := &Answer{Query: q, Similarity: best.Score}
	if best.Score < e.threshold {
		ans.Result = e.fallback
	} else {
		ans.Result = e.texts[best.Position]
		ans.Confident = true
	}
	if e.topK > 1 {
		ans.Matches = make([]Match, len(hits))
		for i, h := range hits {
			ans.Matches[i] = Match{Position: h.Position, Text: e.texts[h.Position], Similarity: h.Score}
		}
	}
	e.logger.Debug("query answered",
		zap.String("query", utils.Truncate(q, 80)),
		zap.Int("position", best.Position),
		zap.Float64("similarity", best.Score),
		zap.Bool("confident", ans.Confident))
	return ans, nil
}

// Stats returns a summary of the loaded bundle.
func (e *Engine) Stats() Stats {
	return Stats{
		Metadata:  e.metadata,
		Documents: e.index.Size(),
		Threshold: e.threshold,
		TopK:      e.topK,
		IndexType: e.index.Type(),
	}
}

// Close releases the index. The embedder is owned by the caller.
func (e *Engine) Close() error {
	return e.index.Close()
}
