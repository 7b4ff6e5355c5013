// Package vector provides the flat inner-product similarity index and vector helpers.
package vector

import "context"

// VectorIndex stores vectors by insertion position and answers exact
// nearest-neighbor queries by inner product.
type VectorIndex interface {
	// Add appends vectors; the first one receives position Size().
	Add(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// VectorResult is a single search hit. Position is the insertion ordinal,
// which equals the document position in the bundle.
type VectorResult struct {
	Position int
	Score    float64 // inner product; cosine similarity for unit vectors
}
