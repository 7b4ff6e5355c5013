// Package storage persists the retrieval bundle: document texts, their
// normalized vectors and build metadata in a single SQLite file.
package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/medrag/internal/vector"
)

const (
	// FormatVersion is the bundle schema version written by this package.
	FormatVersion = 1
	// MetricInnerProduct is the only supported similarity metric.
	MetricInnerProduct = "inner_product"

	unitTolerance = 1e-3
)

var (
	ErrBundleNotFound    = errors.New("bundle not found")
	ErrEmptyBundle       = errors.New("bundle has no documents")
	ErrCorruptBundle     = errors.New("bundle is corrupt")
	ErrUnsupportedFormat = errors.New("unsupported bundle format")
	ErrNotNormalized     = errors.New("vector is not unit length")
)

// Metadata describes a bundle build.
type Metadata struct {
	BuildID           string    `json:"build_id"`
	Model             string    `json:"model"`
	Dimensions        int       `json:"dimensions"`
	Count             int       `json:"count"`
	Metric            string    `json:"metric"`
	CorpusFingerprint string    `json:"corpus_fingerprint"`
	CreatedAt         time.Time `json:"created_at"`
	FormatVersion     int       `json:"format_version"`
}

// Bundle is the in-memory form of a bundle file. Texts[i] and Vectors[i]
// belong to the document at position i.
type Bundle struct {
	Metadata Metadata
	Texts    []string
	Vectors  [][]float32
}

// validateContents checks the positional invariant and vector shape before writing.
func validateContents(texts []string, vectors [][]float32) (int, error) {
	if len(texts) == 0 {
		return 0, ErrEmptyBundle
	}
	if len(texts) != len(vectors) {
		return 0, fmt.Errorf("%w: %d texts but %d vectors", ErrCorruptBundle, len(texts), len(vectors))
	}
	dims := len(vectors[0])
	if dims == 0 {
		return 0, fmt.Errorf("%w: zero-length vectors", ErrCorruptBundle)
	}
	for i, v := range vectors {
		if len(v) != dims {
			return 0, fmt.Errorf("document %d: %w: got %d, expected %d", i, vector.ErrDimensionMismatch, len(v), dims)
		}
		if !vector.IsUnit(v, unitTolerance) {
			return 0, fmt.Errorf("document %d: %w", i, ErrNotNormalized)
		}
		if texts[i] == "" {
			return 0, fmt.Errorf("document %d: %w: empty text", i, ErrCorruptBundle)
		}
	}
	return dims, nil
}
