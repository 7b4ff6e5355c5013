package vector

import (
	"errors"
	"math"
)

var (
	// ErrZeroVector is returned when a vector with zero L2 norm would be normalized.
	ErrZeroVector = errors.New("vector has zero norm")
	// ErrDimensionMismatch is returned when a vector's length differs from the expected dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
// The result is not clamped.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of x. It fails with ErrZeroVector when
// the norm is zero or not finite, so NaN never leaves this function.
func Normalize(x []float32) ([]float32, error) {
	norm := L2Norm(x)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, ErrZeroVector
	}
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = float32(float64(v) / norm)
	}
	return out, nil
}

// IsUnit reports whether x has L2 norm 1 within tol.
func IsUnit(x []float32, tol float64) bool {
	return math.Abs(L2Norm(x)-1) <= tol
}
