// Package indexer builds the retrieval bundle from a corpus: load, embed,
// normalize, index and persist.
package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/medrag/internal/corpus"
	"github.com/hyperjump/medrag/internal/embedding"
	"github.com/hyperjump/medrag/internal/fingerprint"
	"github.com/hyperjump/medrag/internal/storage"
	"github.com/hyperjump/medrag/internal/vector"
	"github.com/hyperjump/medrag/pkg/utils"
	"go.uber.org/zap"
)

const defaultBatchSize = 64

// Indexer turns corpus files into a bundle at bundlePath.
type Indexer struct {
	embedder   embedding.Embedder
	bundlePath string
	indexType  string
	batchSize  int
	loader     *corpus.Loader
	logger     *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithIndexType selects the similarity index used to verify the build ("memory" or "faiss").
func WithIndexType(t string) IndexerOption {
	return func(idx *Indexer) { idx.indexType = t }
}

// WithBatchSize sets how many documents are embedded per provider call.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// New creates an indexer that writes to bundlePath.
func New(embedder embedding.Embedder, bundlePath string, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		embedder:   embedder,
		bundlePath: bundlePath,
		indexType:  string(vector.IndexTypeMemory),
		batchSize:  defaultBatchSize,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.LoggerOrNop(idx.logger)
	idx.loader = corpus.NewLoader(corpus.WithLogger(idx.logger))
	return idx
}

// Result reports the outcome of a Build.
type Result struct {
	Metadata  *storage.Metadata
	Documents int
	// Skipped is true when the existing bundle already matched the corpus.
	Skipped bool
}

// Build loads the corpus at paths (files or directories), embeds every
// document and writes the bundle. When the existing bundle was built from
// the same documents with the same model it is left untouched unless force
// is set. Any failure leaves the previous bundle in place.
func (idx *Indexer) Build(ctx context.Context, paths []string, force bool) (*Result, error) {
	files, err := ResolvePaths(paths, corpus.SupportedExtensions())
	if err != nil {
		return nil, err
	}
	docs, err := idx.loader.Load(files...)
	if err != nil {
		return nil, err
	}
	model := idx.embedder.ModelName()
	fp := fingerprint.Corpus(model, docs)

	if !force {
		if meta, ok := idx.unchanged(ctx, fp, model); ok {
			idx.logger.Info("bundle up to date, skipping rebuild",
				zap.String("bundle", idx.bundlePath),
				zap.String("build_id", meta.BuildID),
				zap.Int("documents", meta.Count))
			return &Result{Metadata: meta, Documents: meta.Count, Skipped: true}, nil
		}
	}

	vectors, err := idx.embedAll(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to embed corpus: %w", err)
	}

	index, err := vector.Build(ctx, idx.indexType, idx.embedder.Dimensions(), vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	size := index.Size()
	_ = index.Close()
	if size != len(docs) {
		return nil, fmt.Errorf("index holds %d vectors for %d documents", size, len(docs))
	}

	meta, err := storage.WriteBundle(ctx, idx.bundlePath, docs, vectors, storage.Metadata{
		Model:             model,
		CorpusFingerprint: fp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write bundle: %w", err)
	}
	idx.logger.Info("bundle written",
		zap.String("bundle", idx.bundlePath),
		zap.String("build_id", meta.BuildID),
		zap.Int("documents", meta.Count),
		zap.Int("dimensions", meta.Dimensions))
	return &Result{Metadata: meta, Documents: len(docs)}, nil
}

// unchanged reports whether the bundle on disk was built from the same corpus and model.
func (idx *Indexer) unchanged(ctx context.Context, fp, model string) (*storage.Metadata, bool) {
	meta, err := storage.ReadMetadata(ctx, idx.bundlePath)
	if err != nil {
		if !errors.Is(err, storage.ErrBundleNotFound) {
			idx.logger.Debug("existing bundle unreadable, rebuilding", zap.Error(err))
		}
		return nil, false
	}
	if meta.CorpusFingerprint != fp || meta.Model != model {
		return nil, false
	}
	return meta, true
}

func (idx *Indexer) embedAll(ctx context.Context, docs []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(docs))
	for start := 0; start < len(docs); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch, err := embedding.NormalizedBatch(ctx, idx.embedder, docs[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch starting at document %d: %w", start, err)
		}
		vectors = append(vectors, batch...)
		idx.logger.Debug("documents embedded", zap.Int("done", end), zap.Int("total", len(docs)))
	}
	return vectors, nil
}
